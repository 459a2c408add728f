package application

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ericfisherdev/livebadge/internal/domain/model"
)

// normalizeEndpoint checks that raw is an absolute http(s) URL and strips any
// trailing slash.
func normalizeEndpoint(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: endpoint is required", ErrInputInvalid)
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: endpoint must be an absolute http(s) URL", ErrInputInvalid)
	}

	return strings.TrimRight(raw, "/"), nil
}

// publicCredential checks that key is present and not privileged.
func publicCredential(key string) (string, error) {
	cred := model.ClassifyCredential(key)
	if cred.Key == "" {
		return "", fmt.Errorf("%w: public credential is required", ErrInputInvalid)
	}
	if cred.IsPrivileged() {
		return "", fmt.Errorf("%w: public credential must not be a privileged key", ErrInputInvalid)
	}
	return cred.Key, nil
}
