/**
 * @description
 * This package provides a client for the token ledger API. It encapsulates
 * the logic for making authenticated HTTP requests to the ledger's transfer
 * and balance endpoints, handling request body construction, and parsing
 * responses. Both the PANDA token ledger and the ICP ledger sit behind the
 * same gateway; the currency field selects which one a call hits.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package ledgerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const (
	CurrencyPanda = "PANDA"
	CurrencyICP   = "ICP"
)

// Client is a client for the ledger gateway API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new ledger gateway client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// TransferRequest represents the payload for a ledger transfer.
type TransferRequest struct {
	Currency string `json:"currency"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Amount   uint64 `json:"amount"`
	Memo     string `json:"memo,omitempty"`
}

// TransferResponse is the expected response from the transfer endpoints.
type TransferResponse struct {
	Data struct {
		BlockIndex uint64 `json:"block_index"`
		Status     string `json:"status"`
	} `json:"data"`
}

// BalanceResponse represents a balance response from the ledger gateway.
type BalanceResponse struct {
	Data struct {
		Balance uint64 `json:"balance"`
	} `json:"data"`
}

// ErrorResponse represents an error from the ledger gateway.
type ErrorResponse struct {
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Status string `json:"status"`
	} `json:"errors"`
}

func (e *ErrorResponse) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("ledger api error: %s - %s", e.Errors[0].Title, e.Errors[0].Detail)
	}
	return "unknown ledger api error"
}

// TransferTo pays amount of PANDA from the pool account to the recipient.
func (c *Client) TransferTo(ctx context.Context, to string, amount uint64, memo string) (uint64, error) {
	return c.doTransfer(ctx, "/api/v1/transfers", TransferRequest{
		Currency: CurrencyPanda,
		To:       to,
		Amount:   amount,
		Memo:     memo,
	})
}

// TransferFrom pulls amount of PANDA from a pre-approved account into the pool.
func (c *Client) TransferFrom(ctx context.Context, from string, amount uint64, memo string) (uint64, error) {
	return c.doTransfer(ctx, "/api/v1/transfers/from", TransferRequest{
		Currency: CurrencyPanda,
		From:     from,
		Amount:   amount,
		Memo:     memo,
	})
}

// ICPTransferFrom pulls amount of ICP from a pre-approved account into the pool.
func (c *Client) ICPTransferFrom(ctx context.Context, from string, amount uint64, memo string) (uint64, error) {
	return c.doTransfer(ctx, "/api/v1/transfers/from", TransferRequest{
		Currency: CurrencyICP,
		From:     from,
		Amount:   amount,
		Memo:     memo,
	})
}

// ICPTransferTo pays amount of ICP from the pool account to the recipient.
func (c *Client) ICPTransferTo(ctx context.Context, to string, amount uint64, memo string) (uint64, error) {
	return c.doTransfer(ctx, "/api/v1/transfers", TransferRequest{
		Currency: CurrencyICP,
		To:       to,
		Amount:   amount,
		Memo:     memo,
	})
}

// doTransfer is a generic helper function to execute transfer requests.
func (c *Client) doTransfer(ctx context.Context, path string, payload TransferRequest) (uint64, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal transfer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create transfer request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-ledger-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute transfer request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read transfer response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			log.Printf("level=warn component=ledger_client op=transfer currency=%s status=%d msg=\"non-2xx response (unparsable error body)\"", payload.Currency, resp.StatusCode)
			return 0, fmt.Errorf("failed to decode error response (status %d)", resp.StatusCode)
		}
		log.Printf("level=warn component=ledger_client op=transfer currency=%s status=%d title=%q detail=%q", payload.Currency, resp.StatusCode, firstErrorTitle(errResp), firstErrorDetail(errResp))
		return 0, &errResp
	}

	var successResp TransferResponse
	if err := json.Unmarshal(bodyBytes, &successResp); err != nil {
		return 0, fmt.Errorf("failed to decode success response: %w", err)
	}

	return successResp.Data.BlockIndex, nil
}

// BalanceOf fetches the PANDA balance of an account.
func (c *Client) BalanceOf(ctx context.Context, account string) (uint64, error) {
	url := c.BaseURL + "/api/v1/accounts/balance/" + account + "?currency=" + CurrencyPanda

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create balance request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-ledger-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute balance request: %w", err)
	}
	defer resp.Body.Close()
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read balance response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			log.Printf("level=warn component=ledger_client op=get_balance account=%s status=%d msg=\"non-2xx response (unparsable error body)\"", account, resp.StatusCode)
			return 0, fmt.Errorf("failed to decode error response (status %d)", resp.StatusCode)
		}
		log.Printf("level=warn component=ledger_client op=get_balance account=%s status=%d title=%q detail=%q", account, resp.StatusCode, firstErrorTitle(errResp), firstErrorDetail(errResp))
		return 0, &errResp
	}

	var balanceResp BalanceResponse
	if err := json.Unmarshal(bodyBytes, &balanceResp); err != nil {
		return 0, fmt.Errorf("failed to decode balance response: %w", err)
	}

	return balanceResp.Data.Balance, nil
}

func firstErrorTitle(resp ErrorResponse) string {
	if len(resp.Errors) == 0 {
		return ""
	}
	return resp.Errors[0].Title
}

func firstErrorDetail(resp ErrorResponse) string {
	if len(resp.Errors) == 0 {
		return ""
	}
	return resp.Errors[0].Detail
}
