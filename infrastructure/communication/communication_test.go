package communication

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type postedMessage struct {
	channel string
	text    string
}

func fakeSlack(t *testing.T, ok bool) (*httptest.Server, func() []postedMessage) {
	var mu sync.Mutex
	var posted []postedMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		mu.Lock()
		posted = append(posted, postedMessage{channel: r.FormValue("channel"), text: r.FormValue("text")})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if ok {
			_, _ = w.Write([]byte(`{"ok":true,"channel":"C1","ts":"1.0"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []postedMessage {
		mu.Lock()
		defer mu.Unlock()
		return append([]postedMessage(nil), posted...)
	}
}

func TestSlackRoutesByChannel(t *testing.T) {
	srv, posted := fakeSlack(t, true)
	s := NewSlack("xoxb-test", SlackOption{
		InfoChannelID:  "C-INFO",
		ErrorChannelID: "C-ERR",
		Source:         "hrms-api",
		APIURL:         srv.URL + "/",
	})

	require.NoError(t, s.Info("sweep done"))
	require.NoError(t, s.Error("request failed"))

	assert.Equal(t, []postedMessage{
		{channel: "C-INFO", text: "[hrms-api] sweep done"},
		{channel: "C-ERR", text: "[hrms-api] request failed"},
	}, posted())
}

func TestSlackSkipsUnsetChannel(t *testing.T) {
	srv, posted := fakeSlack(t, true)
	s := NewSlack("xoxb-test", SlackOption{ErrorChannelID: "C-ERR", APIURL: srv.URL + "/"})

	require.NoError(t, s.Info("ignored"))
	assert.Empty(t, posted())
}

func TestSlackReportsAPIErrors(t *testing.T) {
	srv, _ := fakeSlack(t, false)
	s := NewSlack("xoxb-test", SlackOption{ErrorChannelID: "C-ERR", APIURL: srv.URL + "/"})

	err := s.Error("boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}
