package config

import (
	"net"
	"net/http"
	"syscall"
	"time"
)

func NewHTTPClient() *http.Client {
	return &http.Client{Transport: newTransport(nil)}
}

// NewDownloadHTTPClient is used for user supplied download URLs. control
// runs on every dial after DNS resolution, and checkRedirect on every hop.
func NewDownloadHTTPClient(control func(network, address string, c syscall.RawConn) error, checkRedirect func(*http.Request, []*http.Request) error) *http.Client {
	return &http.Client{
		Transport:     newTransport(control),
		CheckRedirect: checkRedirect,
	}
}

func newTransport(control func(network, address string, c syscall.RawConn) error) *http.Transport {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
			Control:   control,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// A proxy would hide the real destination from control.
	if control == nil {
		transport.Proxy = http.ProxyFromEnvironment
	}
	return transport
}
