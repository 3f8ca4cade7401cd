package util

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	cstr "github.com/shopmonkeyus/go-common/string"
)

// MaskURL returns a masked version of the URL string attempting to hide credentials and query values.
func MaskURL(urlString string) (string, error) {
	u, err := url.Parse(urlString)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}
	var str strings.Builder
	str.WriteString(u.Scheme)
	str.WriteString("://")
	if u.User != nil {
		str.WriteString(cstr.Mask(u.User.Username()))
		if pass, ok := u.User.Password(); ok {
			str.WriteString(":")
			str.WriteString(cstr.Mask(pass))
		}
		str.WriteString("@")
	}
	str.WriteString(u.Host)
	str.WriteString(u.Path)
	var qs []string
	for k, v := range u.Query() {
		qs = append(qs, fmt.Sprintf("%s=%s", k, cstr.Mask(strings.Join(v, ","))))
	}
	sort.Strings(qs)
	if len(qs) > 0 {
		str.WriteString("?")
		str.WriteString(strings.Join(qs, "&"))
	}
	return str.String(), nil
}

// MaskEmail masks the email address attempting to hide sensitive information.
func MaskEmail(val string) string {
	local, domain, ok := strings.Cut(val, "@")
	if !ok {
		return cstr.Mask(val)
	}
	host, tld, ok := strings.Cut(domain, ".")
	if !ok {
		return cstr.Mask(local) + "@" + cstr.Mask(domain)
	}
	return cstr.Mask(local) + "@" + cstr.Mask(host) + "." + tld
}

// MaskToken keeps only the last 4 characters of a token or api key.
func MaskToken(val string) string {
	if len(val) <= 8 {
		return strings.Repeat("*", len(val))
	}
	return strings.Repeat("*", 8) + val[len(val)-4:]
}

var isURL = regexp.MustCompile(`^(\w+)://`)
var isEmail = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
var isJWT = regexp.MustCompile(`^[a-zA-Z0-9-_]+\.[a-zA-Z0-9-_]+\.[a-zA-Z0-9-_]+$`)

// MaskArguments masks sensitive information in the given arguments.
func MaskArguments(args []string) []string {
	masked := make([]string, len(args))
	for i, arg := range args {
		name, val, isFlag := strings.Cut(arg, "=")
		if isFlag && strings.HasPrefix(name, "--") {
			if strings.Contains(name, "password") || strings.Contains(name, "token") {
				masked[i] = name + "=" + strings.Repeat("*", len(val))
				continue
			}
			arg = val
		} else {
			name = ""
		}
		var out string
		switch {
		case isURL.MatchString(arg):
			if u, err := MaskURL(arg); err == nil {
				out = u
			} else {
				out = cstr.Mask(arg)
			}
		case isEmail.MatchString(arg):
			out = MaskEmail(arg)
		case isJWT.MatchString(arg):
			out = MaskToken(arg)
		default:
			out = arg
		}
		if name != "" {
			out = name + "=" + out
		}
		masked[i] = out
	}
	return masked
}
