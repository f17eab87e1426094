package telemetry

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"opendns-stats/lib/restyutil"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestInstrumentResty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "pong")
	}))
	defer server.Close()

	recorder := &RecordingAPI{}
	output := &restyutil.MemoryOutput{}
	client := resty.New()
	InstrumentResty(client, recorder, output)

	for i := 0; i < 2; i++ {
		res, err := client.R().SetBody("ping").Post(server.URL + "/ping")
		require.NoError(t, err)
		require.Equal(t, "pong", res.String())
	}

	require.Len(t, recorder.Find(KindDebug, report_resty_request), 2)
	require.Len(t, recorder.Find(KindDebug, report_resty_response), 2)
	require.Equal(t, 2, output.Len())

	message, ok := output.Get("2")
	require.True(t, ok)
	require.Contains(t, message, "POST "+server.URL+"/ping")
	require.Contains(t, message, "pong")
}

func TestInstrumentRestyError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	recorder := &RecordingAPI{}
	client := resty.New()
	InstrumentResty(client, recorder, nil)

	_, err := client.R().Get(url)
	require.Error(t, err)
	require.Len(t, recorder.Find(KindBroken, report_resty_response), 1)
}
