package bootstrap

import (
	"EnclosureAPI/internal/config"
	"EnclosureAPI/internal/download"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const maxDownloadRedirects = 5

// NewDownloadPolicy limits downloads to the configured media hosts and
// buckets plus DOWNLOAD_ALLOWED_HOSTS.
func NewDownloadPolicy(cfg *config.AppConfig) *download.Policy {
	policy := &download.Policy{
		Buckets:      map[string]string{},
		AllowPrivate: cfg.DownloadAllowPrivate,
	}

	add := func(raw string) {
		if host := hostOf(raw); host != "" {
			policy.Hosts = append(policy.Hosts, host)
		}
	}

	if cfg.S3Bucket != "" {
		policy.Buckets["s3"] = cfg.S3Bucket
		add(cfg.S3PublicDomain)
		add(cfg.S3Endpoint)
		if cfg.S3Region != "" {
			add(fmt.Sprintf("%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region))
		}
	}
	if cfg.FirebaseBucket != "" {
		policy.Buckets["gs"] = cfg.FirebaseBucket
		add("firebasestorage.googleapis.com")
		add("storage.googleapis.com")
	}
	for _, h := range cfg.DownloadAllowedHosts {
		add(h)
	}

	return policy
}

// NewDownloadHTTPClient re-checks every redirect hop against policy and,
// unless private addresses are allowed, refuses to dial them.
func NewDownloadHTTPClient(policy *download.Policy) *http.Client {
	checkRedirect := func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxDownloadRedirects {
			return errors.New("too many redirects")
		}
		return policy.Check(req.Context(), req.URL)
	}

	if policy.AllowPrivate {
		return config.NewDownloadHTTPClient(nil, checkRedirect)
	}
	return config.NewDownloadHTTPClient(download.DenyPrivateDial, checkRedirect)
}

func hostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
