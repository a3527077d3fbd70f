package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/luckypool/luckypool-service/internal/app"
	"github.com/luckypool/luckypool-service/internal/domain"
	"github.com/luckypool/luckypool-service/internal/store"
	"github.com/luckypool/luckypool-service/internal/vault"
	"github.com/luckypool/luckypool-service/pkg/rabbitmq"
)

const (
	testJWTSecret      = "test-jwt-secret"
	testInternalAPIKey = "internal-key"
)

type staticLedger struct{ balance uint64 }

func (l *staticLedger) TransferTo(ctx context.Context, to string, amount uint64, memo string) (uint64, error) {
	return 1, nil
}
func (l *staticLedger) TransferFrom(ctx context.Context, from string, amount uint64, memo string) (uint64, error) {
	return 1, nil
}
func (l *staticLedger) ICPTransferFrom(ctx context.Context, from string, amount uint64, memo string) (uint64, error) {
	return 1, nil
}
func (l *staticLedger) ICPTransferTo(ctx context.Context, to string, amount uint64, memo string) (uint64, error) {
	return 1, nil
}
func (l *staticLedger) BalanceOf(ctx context.Context, account string) (uint64, error) {
	return l.balance, nil
}

type staticRandom struct{}

func (staticRandom) RandomBytes(ctx context.Context) ([]byte, error) {
	return make([]byte, 32), nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	v, err := vault.New([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("vault.New: %v", err)
	}
	repo := store.NewMemoryRepository()
	pool := app.NewPoolState(10, 1000*domain.Token1)
	svc := app.NewService(repo, repo, &staticLedger{balance: 1_000_000 * domain.Token1}, staticRandom{}, v, pool, &rabbitmq.EventProducerFallback{}, "pool-account", func() uint64 { return 1_700_000_000 })
	return LuckyPoolRoutes(NewLuckyPoolHandlers(svc), testJWTSecret, testInternalAPIKey)
}

func bearerToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": subject})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + signed
}

func doJSON(t *testing.T, router http.Handler, method, path, auth string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthRequired(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/luckypool/airdrop", "", domain.AirdropClaimRequest{LuckyCode: "x"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/luckypool/airdrop", "Bearer garbage", domain.AirdropClaimRequest{LuckyCode: "x"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: got %d", rec.Code)
	}
}

func TestAirdropClaimEndpoint(t *testing.T) {
	router := newTestRouter(t)
	auth := bearerToken(t, "alice")

	rec := doJSON(t, router, http.MethodPost, "/luckypool/airdrop", auth, domain.AirdropClaimRequest{LuckyCode: "x"})
	if rec.Code != http.StatusOK {
		t.Fatalf("claim: got %d body=%s", rec.Code, rec.Body.String())
	}
	var out domain.AirdropStateOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Claimable != 10*domain.Token1 || out.LuckyCode == nil {
		t.Fatalf("unexpected output: %+v", out)
	}

	// State read reflects the registration.
	rec = doJSON(t, router, http.MethodGet, "/luckypool/airdrop", auth, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("state: got %d", rec.Code)
	}
	var state domain.AirdropStateOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.Claimable != out.Claimable || *state.LuckyCode != *out.LuckyCode {
		t.Fatalf("state mismatch: %+v vs %+v", state, out)
	}
}

func TestAirdropMissingProofIsBadRequest(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/luckypool/airdrop", bearerToken(t, "alice"), domain.AirdropClaimRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rec.Code)
	}
}

func TestHarvestEndpointErrors(t *testing.T) {
	router := newTestRouter(t)
	auth := bearerToken(t, "alice")

	if rec := doJSON(t, router, http.MethodPost, "/luckypool/airdrop", auth, domain.AirdropClaimRequest{LuckyCode: "x"}); rec.Code != http.StatusOK {
		t.Fatalf("registration: got %d", rec.Code)
	}

	rec := doJSON(t, router, http.MethodPost, "/luckypool/harvest", auth, domain.HarvestRequest{Amount: 100 * domain.Token1})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("over-harvest: got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/luckypool/harvest", auth, domain.HarvestRequest{Amount: 2 * domain.Token1})
	if rec.Code != http.StatusOK {
		t.Fatalf("harvest: got %d body=%s", rec.Code, rec.Body.String())
	}
	var out domain.AirdropStateOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Claimed != 2*domain.Token1 || out.Claimable != 8*domain.Token1 {
		t.Fatalf("unexpected state: %+v", out)
	}
}

func TestPrizeEndpointValidation(t *testing.T) {
	router := newTestRouter(t)
	auth := bearerToken(t, "alice")

	rec := doJSON(t, router, http.MethodPost, "/luckypool/prize", auth, prizeClaimRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty cryptogram: got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/luckypool/prize", auth, prizeClaimRequest{Cryptogram: "garbage"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("garbage cryptogram: got %d", rec.Code)
	}
}

func TestLuckyDrawEndpoint(t *testing.T) {
	router := newTestRouter(t)
	auth := bearerToken(t, "alice")

	rec := doJSON(t, router, http.MethodPost, "/luckypool/luckydraw", auth, domain.LuckyDrawRequest{ICP: 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("draw: got %d body=%s", rec.Code, rec.Body.String())
	}
	var out domain.LuckyDrawOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Amount == 0 || out.AirdropCryptogram == nil {
		t.Fatalf("unexpected output: %+v", out)
	}

	rec = doJSON(t, router, http.MethodPost, "/luckypool/luckydraw", auth, domain.LuckyDrawRequest{ICP: 101})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid wager: got %d", rec.Code)
	}
}

func TestStateEndpointIsPublic(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/luckypool/state", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("state: got %d", rec.Code)
	}
	var snap domain.PoolSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.AirdropAmount != 10 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestPrizeIssueEndpointRequiresInternalKey(t *testing.T) {
	router := newTestRouter(t)
	issueReq := domain.PrizeIssueRequest{IssuerCode: 7, ExpireMinutes: 60, Amount: 100, Quantity: 5}

	rec := doJSON(t, router, http.MethodPost, "/internal/luckypool/prizes", "", issueReq)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("no key: got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/internal/luckypool/prizes", bytes.NewBufferString(`{"issuer_code":7,"expire_minutes":60,"amount":100,"quantity":5}`))
	req.Header.Set("X-Internal-Api-Key", testInternalAPIKey)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("with key: got %d body=%s", rec.Code, rec.Body.String())
	}
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out["cryptogram"]) == 0 || out["cryptogram"][:6] != "PRIZE:" {
		t.Fatalf("unexpected cryptogram: %q", out["cryptogram"])
	}
}

func TestIssuedPrizeIsClaimable(t *testing.T) {
	router := newTestRouter(t)
	auth := bearerToken(t, "alice")

	if rec := doJSON(t, router, http.MethodPost, "/luckypool/airdrop", auth, domain.AirdropClaimRequest{LuckyCode: "x"}); rec.Code != http.StatusOK {
		t.Fatalf("registration: got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/internal/luckypool/prizes", bytes.NewBufferString(`{"issuer_code":7,"expire_minutes":60,"amount":3,"quantity":5}`))
	req.Header.Set("X-Internal-Api-Key", testInternalAPIKey)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("issue: got %d", rec.Code)
	}
	var issued map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &issued); err != nil {
		t.Fatalf("decode issue: %v", err)
	}

	rec = doJSON(t, router, http.MethodPost, "/luckypool/prize", auth, prizeClaimRequest{Cryptogram: issued["cryptogram"]})
	if rec.Code != http.StatusOK {
		t.Fatalf("claim issued prize: got %d body=%s", rec.Code, rec.Body.String())
	}
	var out domain.AirdropStateOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode claim: %v", err)
	}
	if out.Claimable != 13*domain.Token1 {
		t.Fatalf("claimable after prize: got %d", out.Claimable)
	}
}

func TestCaptchaEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/luckypool/captcha", bearerToken(t, "alice"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("captcha: got %d body=%s", rec.Code, rec.Body.String())
	}
	var out domain.CaptchaOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ImgBase64 == "" || out.Challenge == "" {
		t.Fatalf("incomplete output: %+v", out)
	}
}
