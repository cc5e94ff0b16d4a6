package oauth

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseCallbackURL extracts OAuth parameters from a pasted callback URL.
// It is the manual fallback for environments where the loopback redirect
// cannot reach this process. It returns nil when the input is empty.
func ParseCallbackURL(input string) (*CallbackResult, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, nil
	}

	candidate := trimmed
	if !strings.Contains(candidate, "://") {
		if strings.HasPrefix(candidate, "?") {
			candidate = "http://localhost" + candidate
		} else if strings.ContainsAny(candidate, "/?#") || strings.Contains(candidate, ":") {
			candidate = "http://" + candidate
		} else if strings.Contains(candidate, "=") {
			candidate = "http://localhost/?" + candidate
		} else {
			return nil, fmt.Errorf("invalid callback URL")
		}
	}

	parsedURL, err := url.Parse(candidate)
	if err != nil {
		return nil, err
	}

	query := parsedURL.Query()
	result := &CallbackResult{
		Code:             strings.TrimSpace(query.Get("code")),
		State:            strings.TrimSpace(query.Get("state")),
		Error:            strings.TrimSpace(query.Get("error")),
		ErrorDescription: strings.TrimSpace(query.Get("error_description")),
	}

	if parsedURL.Fragment != "" {
		if fragQuery, errFrag := url.ParseQuery(parsedURL.Fragment); errFrag == nil {
			if result.Code == "" {
				result.Code = strings.TrimSpace(fragQuery.Get("code"))
			}
			if result.State == "" {
				result.State = strings.TrimSpace(fragQuery.Get("state"))
			}
			if result.Error == "" {
				result.Error = strings.TrimSpace(fragQuery.Get("error"))
			}
		}
	}

	if result.Code == "" && result.Error == "" {
		return nil, fmt.Errorf("callback URL missing code")
	}

	return result, nil
}
