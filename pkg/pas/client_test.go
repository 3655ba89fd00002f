package pas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordJSON(mpn, mfg, partID string) string {
	return fmt.Sprintf(`{"searchProviderPart":{"manufacturerPartNumber":%q,"manufacturerName":%q,"partId":%q,"properties":{"succeeded":{}}}}`,
		mpn, mfg, partID)
}

// newCatalog wires a token endpoint and the given search handler into one
// test server and returns a client pointed at it.
func newCatalog(t *testing.T, tokenGrants *atomic.Int32, search http.HandlerFunc) (Client, *httptest.Server) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		n := tokenGrants.Add(1)
		writeToken(w, fmt.Sprintf("tok-%d", n), 3600)
	})
	mux.HandleFunc(searchPath, search)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	tm := NewTokenManager(srv.URL+"/token", "id", "secret")
	return NewClient(tm, WithBaseURL(srv.URL)), srv
}

func TestSearch_QualifiedFilter(t *testing.T) {
	t.Parallel()

	var grants atomic.Int32
	client, _ := newCatalog(t, &grants, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.True(t, strings.HasPrefix(r.Header.Get("X-Siemens-Correlation-Id"), "corr-"))
		assert.True(t, strings.HasPrefix(r.Header.Get("X-Siemens-Session-Id"), "session-"))
		assert.Equal(t, "US", r.Header.Get("X-Siemens-Ebs-User-Country-Code"))
		assert.Equal(t, "USD", r.Header.Get("X-Siemens-Ebs-User-Currency"))

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, partClassRoot, req.SearchParameters.PartClassID)
		assert.Len(t, req.SearchParameters.Outputs, 7)
		assert.Equal(t, pageSizeQualified, req.SearchParameters.Paging.RequestedPageSize)

		filter, ok := req.SearchParameters.Filter.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "And", filter["__logicalOperator__"])
		assert.Equal(t, "LogicalExpression", filter["__expression__"])

		left, ok := filter["left"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "SmartMatch", left["__valueOperator__"])
		assert.Equal(t, PropManufacturerName, left["propertyId"])
		assert.Equal(t, "ROHM", left["term"])

		right, ok := filter["right"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, PropManufacturerPN, right["propertyId"])
		assert.Equal(t, "UDZVTE-176.2B", right["term"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"success":true,"result":{"results":[%s],"totalCount":1}}`,
			recordJSON("UDZVTE-176.2B", "ROHM", "p-1"))
	})

	records, err := client.Search(context.Background(), "UDZVTE-176.2B", "ROHM")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ROHM", records[0].SearchProviderPart.ManufacturerName)
	assert.Equal(t, "p-1", records[0].SearchProviderPart.PartID)
}

func TestSearch_PartNumberOnlyFilter(t *testing.T) {
	t.Parallel()

	for _, manufacturer := range []string{"", "Unknown", "   "} {
		t.Run(fmt.Sprintf("manufacturer=%q", manufacturer), func(t *testing.T) {
			t.Parallel()

			var grants atomic.Int32
			client, _ := newCatalog(t, &grants, func(w http.ResponseWriter, r *http.Request) {
				var req searchRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, pageSizePartOnly, req.SearchParameters.Paging.RequestedPageSize)

				filter, ok := req.SearchParameters.Filter.(map[string]any)
				require.True(t, ok)
				assert.Equal(t, "SmartMatch", filter["__valueOperator__"])
				assert.Equal(t, "ValueExpression", filter["__expression__"])
				assert.Equal(t, PropManufacturerPN, filter["propertyId"])
				assert.Equal(t, "LM358DR", filter["term"])

				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"success":true,"result":{"results":[],"totalCount":0}}`)
			})

			records, err := client.Search(context.Background(), "LM358DR", manufacturer)
			require.NoError(t, err)
			assert.Empty(t, records)
		})
	}
}

func TestSearch_Pagination(t *testing.T) {
	t.Parallel()

	var (
		grants  atomic.Int32
		corrMu  sync.Mutex
		corrIDs []string
	)
	captureCorr := func(r *http.Request) {
		corrMu.Lock()
		corrIDs = append(corrIDs, r.Header.Get("X-Siemens-Correlation-Id"))
		corrMu.Unlock()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		grants.Add(1)
		writeToken(w, "tok-1", 3600)
	})
	mux.HandleFunc(searchPath, func(w http.ResponseWriter, r *http.Request) {
		captureCorr(r)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"success":true,"result":{"results":[%s],"totalCount":2,"nextPageToken":"page-2"}}`,
			recordJSON("STM32F103C8T6", "STMicroelectronics", "p-1"))
	})
	mux.HandleFunc(nextPagePath, func(w http.ResponseWriter, r *http.Request) {
		captureCorr(r)

		var req nextPageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "page-2", req.PageToken)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"success":true,"result":{"results":[%s],"totalCount":2}}`,
			recordJSON("STM32F103C8T6", "STMicro", "p-2"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tm := NewTokenManager(srv.URL+"/token", "id", "secret")
	client := NewClient(tm, WithBaseURL(srv.URL))

	records, err := client.Search(context.Background(), "STM32F103C8T6", "STMicroelectronics")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "p-1", records[0].SearchProviderPart.PartID)
	assert.Equal(t, "p-2", records[1].SearchProviderPart.PartID)

	corrMu.Lock()
	defer corrMu.Unlock()
	require.Len(t, corrIDs, 2)
	assert.Equal(t, corrIDs[0], corrIDs[1])
}

func TestSearch_TokenReuse(t *testing.T) {
	t.Parallel()

	var grants atomic.Int32
	client, _ := newCatalog(t, &grants, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success":true,"result":{"results":[],"totalCount":0}}`)
	})

	_, err := client.Search(context.Background(), "LM358DR", "Texas Instruments")
	require.NoError(t, err)
	_, err = client.Search(context.Background(), "STM32F103C8T6", "STMicroelectronics")
	require.NoError(t, err)

	assert.Equal(t, int32(1), grants.Load())
}

func TestSearch_RefreshOn401(t *testing.T) {
	t.Parallel()

	var (
		grants   atomic.Int32
		attempts atomic.Int32
	)
	client, _ := newCatalog(t, &grants, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "Bearer tok-2", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"success":true,"result":{"results":[%s],"totalCount":1}}`,
			recordJSON("LM358DR", "Texas Instruments", "p-1"))
	})

	records, err := client.Search(context.Background(), "LM358DR", "Texas Instruments")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int32(2), attempts.Load())
	assert.Equal(t, int32(2), grants.Load())
}

func TestSearch_UnauthorizedAfterRefresh(t *testing.T) {
	t.Parallel()

	var grants atomic.Int32
	client, _ := newCatalog(t, &grants, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Search(context.Background(), "LM358DR", "Texas Instruments")
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.Equal(t, int32(2), grants.Load())
}

func TestSearch_EnvelopeFailure(t *testing.T) {
	t.Parallel()

	var grants atomic.Int32
	client, _ := newCatalog(t, &grants, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success":false,"error":{"message":"invalid filter","causes":[{"code":"F001","message":"unknown property"}]}}`)
	})

	_, err := client.Search(context.Background(), "LM358DR", "Texas Instruments")
	require.Error(t, err)
	assert.True(t, IsAPIError(err))
	assert.Contains(t, err.Error(), "invalid filter")
	assert.Contains(t, err.Error(), "F001")
}

func TestSearch_UnexpectedStatus(t *testing.T) {
	t.Parallel()

	var grants atomic.Int32
	client, _ := newCatalog(t, &grants, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`bad gateway`))
	})

	_, err := client.Search(context.Background(), "LM358DR", "Texas Instruments")
	require.Error(t, err)
	assert.False(t, IsAPIError(err))
	assert.False(t, IsAuthError(err))
	assert.Contains(t, err.Error(), "502")
}

func TestSearch_NullResult(t *testing.T) {
	t.Parallel()

	var grants atomic.Int32
	client, _ := newCatalog(t, &grants, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success":true,"result":null}`)
	})

	records, err := client.Search(context.Background(), "LM358DR", "Texas Instruments")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStringProperty(t *testing.T) {
	t.Parallel()

	part := ProviderPart{
		Properties: Properties{
			Succeeded: map[string]json.RawMessage{
				PropLifecycleStatus: json.RawMessage(`"Production"`),
				PropFindchipsURL:    json.RawMessage(`{"__complex__":"Url","value":"https://findchips.example/LM358DR"}`),
				PropDatasheetURL:    json.RawMessage(`{"__complex__":"Url"}`),
				PropLifecycleCode:   json.RawMessage(`42`),
			},
		},
	}

	assert.Equal(t, "Production", part.StringProperty(PropLifecycleStatus))
	assert.Equal(t, "https://findchips.example/LM358DR", part.StringProperty(PropFindchipsURL))
	assert.Equal(t, "", part.StringProperty(PropDatasheetURL))
	assert.Equal(t, "", part.StringProperty(PropLifecycleCode))
	assert.Equal(t, "", part.StringProperty(PropPartID))
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()

	tm := NewTokenManager(DefaultAuthURL, "id", "secret")
	c := NewClient(tm).(*httpClient)

	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.NotNil(t, c.http)
	assert.Equal(t, 60*time.Second, c.http.Timeout)
	assert.True(t, strings.HasPrefix(c.sessionID, "session-"))
	assert.Nil(t, c.limiter)
}

func TestWithRateLimit(t *testing.T) {
	t.Parallel()

	tm := NewTokenManager(DefaultAuthURL, "id", "secret")

	c := NewClient(tm, WithRateLimit(5)).(*httpClient)
	assert.NotNil(t, c.limiter)

	c = NewClient(tm, WithRateLimit(0)).(*httpClient)
	assert.Nil(t, c.limiter)
}
