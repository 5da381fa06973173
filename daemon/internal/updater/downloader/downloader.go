// Package downloader fetches update artifacts over HTTP
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"github.com/livos-io/livos/version"
)

const (
	userAgent = "LivOS %s"

	// update scripts are small text files; anything bigger is broken
	maxScriptSize = 10 << 20

	maxRetries = 2

	// DefaultRetryDelay is the initial backoff interval between download attempts
	DefaultRetryDelay = 3 * time.Second
)

// DownloadToMemory fetches the body of the given URL, limited to maxScriptSize
func DownloadToMemory(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("User-Agent", fmt.Sprintf(userAgent, version.LivOSVersion()))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Warnf("error closing response body: %v", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected HTTP status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// DownloadWithRetry fetches the body of the given URL, retrying transient
// failures with exponential backoff starting at retryDelay
func DownloadWithRetry(ctx context.Context, url string, retryDelay time.Duration) ([]byte, error) {
	log.Debugf("starting download from %s", url)

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = retryDelay

	var data []byte
	operation := func() error {
		var err error
		data, err = DownloadToMemory(ctx, url)
		if err != nil {
			log.Warnf("download of %s failed, will retry: %v", url, err)
		}
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(exp, maxRetries), ctx))
	if err != nil {
		return nil, fmt.Errorf("download failed after retries: %w", err)
	}

	log.Infof("successfully downloaded %d bytes from %s", len(data), url)
	return data, nil
}
