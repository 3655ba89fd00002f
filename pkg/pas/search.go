package pas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Wire shapes for the parametric search endpoint.

type valueExpression struct {
	ValueOperator string `json:"__valueOperator__"`
	Expression    string `json:"__expression__"`
	PropertyID    string `json:"propertyId"`
	Term          string `json:"term"`
}

type logicalExpression struct {
	LogicalOperator string          `json:"__logicalOperator__"`
	Expression      string          `json:"__expression__"`
	Left            valueExpression `json:"left"`
	Right           valueExpression `json:"right"`
}

type searchRequest struct {
	SearchParameters searchParameters `json:"searchParameters"`
}

type searchParameters struct {
	PartClassID      string         `json:"partClassId"`
	CustomParameters map[string]any `json:"customParameters"`
	Outputs          []string       `json:"outputs"`
	Sort             []any          `json:"sort"`
	Paging           paging         `json:"paging"`
	Filter           any            `json:"filter"`
}

type paging struct {
	RequestedPageSize int `json:"requestedPageSize"`
}

type nextPageRequest struct {
	PageToken string `json:"pageToken"`
}

type envelope struct {
	Success bool        `json:"success"`
	Result  *pageResult `json:"result"`
	Error   *APIError   `json:"error"`
}

type pageResult struct {
	Results       []Record `json:"results"`
	TotalCount    int      `json:"totalCount"`
	NextPageToken string   `json:"nextPageToken"`
}

func smartMatch(propertyID, term string) valueExpression {
	return valueExpression{
		ValueOperator: "SmartMatch",
		Expression:    "ValueExpression",
		PropertyID:    propertyID,
		Term:          term,
	}
}

// buildSearch assembles the parametric request for one lookup. A usable
// manufacturer narrows the filter to an AND over manufacturer name and part
// number at a small page size; otherwise the part number is matched alone
// against a wider page.
func buildSearch(partNumber, manufacturer string) searchRequest {
	var (
		filter   any
		pageSize int
	)
	if strings.TrimSpace(manufacturer) != "" && manufacturer != "Unknown" {
		filter = logicalExpression{
			LogicalOperator: "And",
			Expression:      "LogicalExpression",
			Left:            smartMatch(PropManufacturerName, manufacturer),
			Right:           smartMatch(PropManufacturerPN, partNumber),
		}
		pageSize = pageSizeQualified
	} else {
		filter = smartMatch(PropManufacturerPN, partNumber)
		pageSize = pageSizePartOnly
	}

	return searchRequest{
		SearchParameters: searchParameters{
			PartClassID:      partClassRoot,
			CustomParameters: map[string]any{},
			Outputs: []string{
				PropManufacturerName,
				PropManufacturerPN,
				PropDatasheetURL,
				PropFindchipsURL,
				PropLifecycleStatus,
				PropLifecycleCode,
				PropPartID,
			},
			Sort:   []any{},
			Paging: paging{RequestedPageSize: pageSize},
			Filter: filter,
		},
	}
}

func (c *httpClient) Search(ctx context.Context, partNumber, manufacturer string) ([]Record, error) {
	// One correlation id spans the whole search, pagination included.
	corrID := fmt.Sprintf("corr-%d", time.Now().UnixMilli())

	var (
		records []Record
		payload any = buildSearch(partNumber, manufacturer)
		reqURL      = c.baseURL + searchPath
	)

	for {
		page, err := c.post(ctx, reqURL, corrID, payload)
		if err != nil {
			return nil, err
		}
		if page == nil {
			break
		}

		records = append(records, page.Results...)

		if page.NextPageToken == "" {
			break
		}
		reqURL = c.baseURL + nextPagePath
		payload = nextPageRequest{PageToken: page.NextPageToken}
	}

	return records, nil
}

// post issues one authenticated catalog call. On a 401 the cached token is
// invalidated and the request retried once with a fresh grant; a second 401
// is a hard authentication failure.
func (c *httpClient) post(ctx context.Context, reqURL, corrID string, payload any) (*pageResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "pas: marshal request")
	}

	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "pas: rate limit")
	}

	raw, status, err := c.do(ctx, reqURL, corrID, body)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		c.tokens.Invalidate()
		raw, status, err = c.do(ctx, reqURL, corrID, body)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			return nil, &AuthError{Err: eris.New("still unauthorized after token refresh")}
		}
	}

	if status != http.StatusOK {
		return nil, eris.Errorf("pas: unexpected status %d: %s", status, string(raw))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, eris.Wrap(err, "pas: unmarshal response")
	}

	if !env.Success {
		if env.Error != nil {
			return nil, env.Error
		}
		return nil, &APIError{Message: "unknown error"}
	}

	return env.Result, nil
}

// do sends one request with a freshly acquired token and the full set of
// required catalog headers.
func (c *httpClient) do(ctx context.Context, reqURL, corrID string, body []byte) ([]byte, int, error) {
	token, err := c.tokens.Acquire(ctx)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, 0, eris.Wrap(err, "pas: create request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Siemens-Correlation-Id", corrID)
	req.Header.Set("X-Siemens-Session-Id", c.sessionID)
	req.Header.Set("X-Siemens-Ebs-User-Country-Code", "US")
	req.Header.Set("X-Siemens-Ebs-User-Currency", "USD")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, eris.Wrap(err, "pas: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, eris.Wrap(err, "pas: read response")
	}
	return raw, resp.StatusCode, nil
}
