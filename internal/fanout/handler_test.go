package fanout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/example/offer-dispatch/internal/offer"
	"github.com/example/offer-dispatch/internal/queue"
)

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		request FanOutRequest
		wantErr bool
	}{
		{
			name:    "valid",
			request: FanOutRequest{PostID: "p1", DraftID: "d1", Channels: []offer.Channel{offer.ChannelChat, offer.ChannelSocial}},
		},
		{
			name:    "missing post id",
			request: FanOutRequest{DraftID: "d1", Channels: []offer.Channel{offer.ChannelChat}},
			wantErr: true,
		},
		{
			name:    "missing draft id",
			request: FanOutRequest{PostID: "p1", Channels: []offer.Channel{offer.ChannelChat}},
			wantErr: true,
		},
		{
			name:    "no channels",
			request: FanOutRequest{PostID: "p1", DraftID: "d1"},
			wantErr: true,
		},
		{
			name:    "unknown channel",
			request: FanOutRequest{PostID: "p1", DraftID: "d1", Channels: []offer.Channel{"fax"}},
			wantErr: true,
		},
		{
			name:    "duplicate channel",
			request: FanOutRequest{PostID: "p1", DraftID: "d1", Channels: []offer.Channel{offer.ChannelChat, offer.ChannelChat}},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validateRequest(tc.request)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

type fakeQueue struct {
	jobs []queue.Job
}

func (f *fakeQueue) FanOut(_ context.Context, postID, draftID string, channels []offer.Channel) ([]queue.Job, error) {
	for _, ch := range channels {
		f.jobs = append(f.jobs, queue.Job{PostID: postID, DraftID: draftID, Channel: ch})
	}
	return f.jobs, nil
}

type fakeAdmin struct {
	records  []offer.DeliveryRecord
	resolved []string
}

func (f *fakeAdmin) ListDeliveries(_ context.Context, _ string) ([]offer.DeliveryRecord, error) {
	return f.records, nil
}

func (f *fakeAdmin) RetryFromError(_ context.Context, id string) error {
	if id == "missing" {
		return offer.ErrErrorLogNotFound
	}
	f.resolved = append(f.resolved, id)
	return nil
}

func TestFanOutEndpoint(t *testing.T) {
	q := &fakeQueue{}
	h := NewHandler(&fakeAdmin{}, q, zerolog.Nop())

	body := `{"post_id":"p1","draft_id":"d1","channels":["chat","social"]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/fanout", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, expected 202 (body %s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q, expected application/json", ct)
	}
	var resp map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["jobs"] != 2 {
		t.Fatalf("jobs = %d, expected 2", resp["jobs"])
	}
	if len(q.jobs) != 2 || q.jobs[0].Channel == q.jobs[1].Channel {
		t.Fatalf("expected one job per distinct channel, got %+v", q.jobs)
	}
}

func TestFanOutEndpointRejectsInvalid(t *testing.T) {
	h := NewHandler(&fakeAdmin{}, &fakeQueue{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/v1/fanout", strings.NewReader(`{"post_id":"p1"}`))
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, expected 400", rec.Code)
	}
}

func TestRetryEndpoint(t *testing.T) {
	admin := &fakeAdmin{}
	h := NewHandler(admin, &fakeQueue{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/v1/errors/log-7/retry", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", rec.Code)
	}
	if len(admin.resolved) != 1 || admin.resolved[0] != "log-7" {
		t.Fatalf("retry did not resolve the log row: %+v", admin.resolved)
	}
}

func TestRetryEndpointUnknownLog(t *testing.T) {
	h := NewHandler(&fakeAdmin{}, &fakeQueue{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/v1/errors/missing/retry", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, expected 404", rec.Code)
	}
}
