package core

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	schemeRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)
	// [user@]host:path, where host has no slash and path is non-empty.
	scpRE = regexp.MustCompile(`^(?:([^@/]+)@)?([^/:]+):(.+)$`)
)

// Normalize rewrites a remote address into URL form. Addresses with an
// explicit scheme are returned unchanged; SCP-style addresses such as
// "git@host:group/project.git" become "ssh://git@host/group/project.git".
func Normalize(raw string) (string, error) {
	if schemeRE.MatchString(raw) {
		return raw, nil
	}
	m := scpRE.FindStringSubmatch(raw)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}

	user, host, path := m[1], m[2], strings.TrimPrefix(m[3], "/")
	var b strings.Builder
	b.WriteString("ssh://")
	if user != "" {
		b.WriteString(user)
		b.WriteByte('@')
	}
	b.WriteString(host)
	b.WriteByte('/')
	b.WriteString(path)
	return b.String(), nil
}

// InstanceBaseURL returns the web address of the instance hosting a remote.
// http and https remotes keep their scheme and port; any other remote is
// assumed to be served over https on the same hostname.
func InstanceBaseURL(raw string) (string, error) {
	normalized, err := Normalize(raw)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(schemeAndAuthority(normalized))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}

	// Host names are case-insensitive; lowercase them so they can key
	// stored credentials.
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), nil
	}
	return "https://" + strings.ToLower(u.Hostname()), nil
}

// Hostname returns the host name of the instance hosting a remote, the key
// under which its credentials are stored.
func Hostname(raw string) (string, error) {
	base, err := InstanceBaseURL(raw)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return u.Hostname(), nil
}

// ProjectPathID returns the project path of a remote, e.g. "group/project"
// for "git@host:group/project.git". The path is returned as written in the
// remote address, without percent-decoding or escaping.
func ProjectPathID(raw string) (string, error) {
	normalized, err := Normalize(raw)
	if err != nil {
		return "", err
	}
	rest := schemeRE.ReplaceAllString(normalized, "")
	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return "", fmt.Errorf("%w: no project path in %q", ErrInvalidURL, raw)
	}

	path := rest[slash:]
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.Trim(path, "/")
	path = strings.TrimSuffix(path, ".git")
	path = strings.Trim(path, "/")
	if path == "" {
		return "", fmt.Errorf("%w: no project path in %q", ErrInvalidURL, raw)
	}
	return path, nil
}

// SSHFromHTTP rewrites an http(s) clone address into the equivalent ssh one.
// Other addresses are returned unchanged.
func SSHFromHTTP(raw string) string {
	switch {
	case strings.HasPrefix(raw, "https://"):
		return strings.Replace(raw, "https://", "ssh://git@", 1)
	case strings.HasPrefix(raw, "http://"):
		return strings.Replace(raw, "http://", "ssh://git@", 1)
	}
	return raw
}

// schemeAndAuthority cuts a URL after its host part, so paths that are not
// valid URL syntax cannot make parsing fail.
func schemeAndAuthority(u string) string {
	loc := schemeRE.FindStringIndex(u)
	if loc == nil {
		return u
	}
	rest := u[loc[1]:]
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	return u[:loc[1]] + rest
}
