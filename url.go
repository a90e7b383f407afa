package sio

import (
	"fmt"
	"net/url"
	"strings"
)

type parsedURL struct {
	// scheme://host[:port] without path and query.
	source string

	// Identity of the connection: scheme://host:port
	id string

	path  string
	query string
}

func parseURL(uri string) (*parsedURL, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, fmt.Errorf("sio: empty URL")
	}

	if strings.HasPrefix(uri, "//") {
		uri = "https:" + uri
	} else if !hasKnownScheme(uri) {
		uri = "https://" + uri
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("sio: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("sio: URL has no host: %s", uri)
	}

	scheme := strings.ToLower(u.Scheme)
	port := u.Port()
	if port == "" {
		switch scheme {
		case "http", "ws":
			port = "80"
		case "https", "wss":
			port = "443"
		}
	}

	host := u.Hostname()
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	return &parsedURL{
		source: scheme + "://" + u.Host,
		id:     scheme + "://" + host + ":" + port,
		path:   path,
		query:  u.RawQuery,
	}, nil
}

func hasKnownScheme(uri string) bool {
	i := strings.Index(uri, "://")
	if i < 0 {
		return false
	}
	switch strings.ToLower(uri[:i]) {
	case "http", "https", "ws", "wss":
		return true
	}
	return false
}
