package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/example/offer-dispatch/internal/offer"
)

func TestTopicFor(t *testing.T) {
	cases := map[offer.Channel]string{
		offer.ChannelChat:    "dispatch.chat",
		offer.ChannelSocial:  "dispatch.social",
		offer.ChannelGateway: "dispatch.gateway",
		offer.ChannelSite:    "dispatch.site",
		offer.Channel("fax"): "",
	}

	for input, expected := range cases {
		if got := TopicFor(input); got != expected {
			t.Fatalf("TopicFor(%s)=%s, expected %s", input, got, expected)
		}
	}
}

func TestBuildFanOut(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	channels := []offer.Channel{offer.ChannelChat, offer.ChannelSocial, offer.ChannelSite}

	jobs, msgs, err := buildFanOut("post-1", "draft-1", channels, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != len(channels) || len(msgs) != len(channels) {
		t.Fatalf("expected %d jobs and messages, got %d and %d", len(channels), len(jobs), len(msgs))
	}

	seen := map[offer.Channel]bool{}
	for i, job := range jobs {
		if job.PostID != "post-1" || job.DraftID != "draft-1" {
			t.Fatalf("job %d has wrong ids: %+v", i, job)
		}
		if seen[job.Channel] {
			t.Fatalf("channel %s appears twice", job.Channel)
		}
		seen[job.Channel] = true

		if msgs[i].Topic != TopicFor(job.Channel) {
			t.Fatalf("message %d routed to %s, expected %s", i, msgs[i].Topic, TopicFor(job.Channel))
		}
		var decoded Job
		if err := json.Unmarshal(msgs[i].Value, &decoded); err != nil {
			t.Fatalf("message %d does not decode: %v", i, err)
		}
		if decoded.Channel != job.Channel {
			t.Fatalf("message %d carries channel %s, expected %s", i, decoded.Channel, job.Channel)
		}
	}
}

func TestBuildFanOutRejectsBadInput(t *testing.T) {
	tests := []struct {
		name     string
		postID   string
		draftID  string
		channels []offer.Channel
	}{
		{name: "missing post id", draftID: "d", channels: []offer.Channel{offer.ChannelChat}},
		{name: "missing draft id", postID: "p", channels: []offer.Channel{offer.ChannelChat}},
		{name: "no channels", postID: "p", draftID: "d"},
		{name: "unknown channel", postID: "p", draftID: "d", channels: []offer.Channel{"fax"}},
		{name: "duplicate channel", postID: "p", draftID: "d", channels: []offer.Channel{offer.ChannelChat, offer.ChannelChat}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := buildFanOut(tc.postID, tc.draftID, tc.channels, time.Now()); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
