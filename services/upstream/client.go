package upstreamsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/lumiclass/teacherdir/core"
	"github.com/lumiclass/teacherdir/core/directory"
)

// Client fetches the teacher directory from the remote directory service.
// One attempt per call; any network error, timeout or unexpected response
// shape surfaces as directory.ErrUpstreamUnavailable.
type Client struct {
	baseURL string
	http    *http.Client
	now     func() time.Time
}

var _ directory.UpstreamClient = (*Client)(nil)

// teacherList is the upstream response envelope. The "teachers" field is
// required; its absence means the response shape changed under us.
type teacherList struct {
	Teachers []struct {
		Name        string `json:"name"`
		DisplayName string `json:"display_name"`
	} `json:"teachers"`
}

func NewClient(conf *core.Config) *Client {
	return &Client{
		baseURL: conf.Upstream.BaseURL,
		http:    &http.Client{Timeout: conf.Upstream.Timeout},
		now:     time.Now,
	}
}

func (c *Client) FetchDirectory(ctx context.Context) (directory.Snapshot, error) {
	endpoint, err := url.JoinPath(c.baseURL, "/teachers")
	if err != nil {
		return directory.Snapshot{}, errors.Wrap(err, "building upstream URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return directory.Snapshot{}, errors.Wrap(err, "building upstream request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return directory.Snapshot{}, errors.Wrapf(directory.ErrUpstreamUnavailable, "requesting %s: %v", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return directory.Snapshot{}, errors.Wrapf(directory.ErrUpstreamUnavailable, "unexpected status %d from %s", resp.StatusCode, endpoint)
	}

	var payload teacherList
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return directory.Snapshot{}, errors.Wrapf(directory.ErrUpstreamUnavailable, "decoding response: %v", err)
	}
	if payload.Teachers == nil {
		return directory.Snapshot{}, errors.Wrap(directory.ErrUpstreamUnavailable, "response missing teachers list")
	}

	teachers := make([]directory.Teacher, 0, len(payload.Teachers))
	for _, t := range payload.Teachers {
		if t.Name == "" {
			continue
		}
		teachers = append(teachers, directory.Teacher{Name: t.Name, DisplayName: t.DisplayName})
	}
	return directory.Snapshot{Teachers: teachers, FetchedAt: c.now().UTC()}, nil
}
