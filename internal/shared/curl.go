// Utilities for pulling an auth token out of a pasted cURL command.
package shared

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	curlHeaderRe = regexp.MustCompile(`(?:-H|--header)\s+(?:'([^']+)'|"([^"]+)")`)
	curlCookieRe = regexp.MustCompile(`(?:-b|--cookie)\s+(?:'([^']+)'|"([^"]+)")`)
)

// CurlHeaders represents parsed headers and cookies from a cURL command.
type CurlHeaders struct {
	Headers map[string]string
	Cookie  string
}

// ParseCurlFile reads a .sh file containing a cURL command and extracts headers.
func ParseCurlFile(path string) (*CurlHeaders, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(string(content))
}

// ParseCurlCommand parses a cURL command string (as produced by browser DevTools "Copy as cURL") and extracts headers.
//
// A cookie given with -b wins over a Cookie header.
func ParseCurlCommand(curlCmd string) (*CurlHeaders, error) {
	curlCmd = strings.ReplaceAll(curlCmd, "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	headers := make(map[string]string)
	var cookie string

	for _, match := range curlHeaderRe.FindAllStringSubmatch(curlCmd, -1) {
		key, value, ok := strings.Cut(firstGroup(match), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if strings.EqualFold(key, "cookie") {
			cookie = value
			continue
		}
		headers[key] = value
	}

	if match := curlCookieRe.FindStringSubmatch(curlCmd); match != nil {
		cookie = firstGroup(match)
	}

	if len(headers) == 0 && cookie == "" {
		return nil, fmt.Errorf("%w: no headers found in curl command", ErrInvalidInput)
	}

	return &CurlHeaders{Headers: headers, Cookie: cookie}, nil
}

// Header looks up a header by case-insensitive name.
func (c *CurlHeaders) Header(name string) (string, bool) {
	for key, value := range c.Headers {
		if strings.EqualFold(key, name) {
			return value, true
		}
	}
	return "", false
}

// IsCurlCommand reports whether the input looks like a pasted cURL command.
func IsCurlCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "curl ")
}

// ExtractAuthToken returns the auth token from operator input.
//
// Input is either the bare token or a cURL command carrying an Authorization header; a "Bearer " scheme is stripped.
func ExtractAuthToken(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("%w: empty token", ErrInvalidInput)
	}

	if !IsCurlCommand(input) {
		return strings.Trim(input, `"'`), nil
	}

	parsed, err := ParseCurlCommand(input)
	if err != nil {
		return "", err
	}

	auth, ok := parsed.Header("Authorization")
	if !ok || strings.TrimSpace(auth) == "" {
		return "", fmt.Errorf("%w: curl command has no authorization header", ErrTokenNotFound)
	}

	if scheme, rest, found := strings.Cut(auth, " "); found && strings.EqualFold(scheme, "bearer") {
		auth = rest
	}

	return strings.TrimSpace(auth), nil
}

func firstGroup(match []string) string {
	if match[1] != "" {
		return match[1]
	}
	return match[2]
}
