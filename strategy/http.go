package strategy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/roach88/snapcheck/codec"
)

// RawRequest snapshots an HTTP request as its method and URL, sorted
// headers and body:
//
//	POST http://localhost:8080/account
//	Cookie: pf_session={"userId":"1"}
//
//	email=blob%40pointfree.co&name=Blob
//
// With pretty set, a JSON body is printed with sorted keys and indentation.
// Reading the body restores it, so the request stays usable.
func RawRequest(pretty bool) Strategy[*http.Request, string] {
	return TryPullback(Lines(), func(req *http.Request) (string, error) {
		if req == nil {
			return "", fmt.Errorf("nil request")
		}
		body, err := readBody(req)
		if err != nil {
			return "", err
		}

		lines := []string{method(req) + " " + sortedURL(req.URL)}

		var headers []string
		for key, values := range req.Header {
			for _, v := range values {
				headers = append(headers, key+": "+v)
			}
		}
		sort.Strings(headers)
		lines = append(lines, headers...)

		if len(body) > 0 {
			text := string(body)
			if pretty {
				if formatted, ok := prettyJSON(body); ok {
					text = formatted
				}
			}
			lines = append(lines, "", text)
		}
		return strings.Join(lines, "\n"), nil
	})
}

// CurlRequest snapshots an HTTP request as an equivalent curl command.
// Cookies are passed with --cookie; other headers are sorted.
func CurlRequest() Strategy[*http.Request, string] {
	return TryPullback(Lines(), func(req *http.Request) (string, error) {
		if req == nil {
			return "", fmt.Errorf("nil request")
		}
		body, err := readBody(req)
		if err != nil {
			return "", err
		}

		components := []string{"curl"}
		switch m := method(req); m {
		case http.MethodGet:
		case http.MethodHead:
			components = append(components, "--head")
		default:
			components = append(components, "--request "+m)
		}

		keys := make([]string, 0, len(req.Header))
		for key := range req.Header {
			if key != "Cookie" {
				keys = append(keys, key)
			}
		}
		sort.Strings(keys)
		for _, key := range keys {
			value := strings.Join(req.Header.Values(key), ", ")
			components = append(components, fmt.Sprintf(`--header "%s: %s"`, key, escapeQuotes(value)))
		}

		if len(body) > 0 {
			escaped := strings.ReplaceAll(string(body), `\"`, `\\"`)
			components = append(components, fmt.Sprintf(`--data "%s"`, escapeQuotes(escaped)))
		}

		if cookie := req.Header.Get("Cookie"); cookie != "" {
			components = append(components, fmt.Sprintf(`--cookie "%s"`, escapeQuotes(cookie)))
		}

		components = append(components, `"`+sortedURL(req.URL)+`"`)
		return strings.Join(components, " \\\n\t"), nil
	})
}

func method(req *http.Request) string {
	if req.Method == "" {
		return http.MethodGet
	}
	return req.Method
}

// sortedURL renders u with its query parameters sorted by name.
func sortedURL(u *url.URL) string {
	if u == nil {
		return "(null)"
	}
	sorted := *u
	if sorted.RawQuery != "" {
		sorted.RawQuery = sorted.Query().Encode()
	}
	return sorted.String()
}

func readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

func prettyJSON(body []byte) (string, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return "", false
	}
	out, err := codec.MarshalCanonical(tree, "  ")
	if err != nil {
		return "", false
	}
	return string(out), true
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
