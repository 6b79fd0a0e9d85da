package headerauth

import (
	"sort"
	"strings"
)

// HeaderValue returns the first value of the named header, looked up
// case-insensitively. The second return is false if headerName is empty or
// the header is absent.
func HeaderValue(headers map[string][]string, headerName string) (string, bool) {
	if headerName == "" {
		return "", false
	}

	want := strings.ToLower(headerName)
	for name, values := range headers {
		if strings.ToLower(name) != want {
			continue
		}

		if len(values) == 0 {
			return "", false
		}

		return values[0], true
	}

	return "", false
}

// HeaderValues returns the first value of every header whose name starts,
// case-insensitively, with the given prefix. Values are returned in sorted
// header-name order so repeated calls over the same request are stable. The
// second return is false if the prefix is empty.
func HeaderValues(headers map[string][]string, headerNamePrefix string) ([]string, bool) {
	if headerNamePrefix == "" {
		return nil, false
	}

	prefix := strings.ToLower(headerNamePrefix)

	names := make([]string, 0, len(headers))
	for name := range headers {
		if strings.HasPrefix(strings.ToLower(name), prefix) {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	values := make([]string, 0, len(names))
	for _, name := range names {
		if hv := headers[name]; len(hv) > 0 {
			values = append(values, hv[0])
		}
	}

	return values, true
}

// NormalizeCSV splits every value on commas, trims whitespace and unions the
// fragments into a single set. Zero-length fragments (trailing commas, blank
// entries) are discarded: an empty role name can never resolve to a role.
func NormalizeCSV(values []string) map[string]struct{} {
	set := make(map[string]struct{})

	for _, csv := range values {
		for _, fragment := range strings.Split(csv, ",") {
			if name := strings.TrimSpace(fragment); name != "" {
				set[name] = struct{}{}
			}
		}
	}

	return set
}
