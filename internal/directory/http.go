package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tglink/internal/shared/logger"
	"tglink/internal/shared/types"
)

type resolveResponse struct {
	PeerID types.PeerID `json:"peer_id"`
}

// HTTP queries a remote directory service:
//
//	GET {endpoint}/resolve?name={name}
//
// 200 carries {"peer_id": {...}}, 404 means the name does not exist.
type HTTP struct {
	endpoint string
	client   *http.Client
}

func NewHTTP(endpoint string, timeout time.Duration) *HTTP {
	return &HTTP{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

func (h *HTTP) Lookup(ctx context.Context, name string) (types.PeerID, error) {
	l := logger.WithComponent("Directory/HTTP")
	reqURL := h.endpoint + "/resolve?name=" + url.QueryEscape(NormalizeName(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return types.PeerID{}, fmt.Errorf("failed to create directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		l.Warn().Err(err).Str("name", name).Msg("Directory request failed.")
		return types.PeerID{}, fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return types.PeerID{}, ErrNotFound
	default:
		return types.PeerID{}, fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	var body resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return types.PeerID{}, fmt.Errorf("failed to decode directory response: %w", err)
	}
	l.Debug().Str("name", name).Int32("peer_id", body.PeerID.ID).Msg("Directory resolved name.")
	return body.PeerID, nil
}
