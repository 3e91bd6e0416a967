package app

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"utmcouncil/vote-api/internal"
	"utmcouncil/vote-api/internal/carnet"
	"utmcouncil/vote-api/internal/service"
	"utmcouncil/vote-api/internal/storage"
	"utmcouncil/vote-api/internal/testutil"
	"utmcouncil/vote-api/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "admin@utm.md"
	adminPassword = "hunter22"
)

var (
	approving = carnet.StaticEngine{Text: "UTM CARNET DE ELEV NR. UTM-1 MINISTERUL EDUCAȚIEI VALABIL", Confidence: 91}
	garbage   = carnet.StaticEngine{Text: "LOREM IPSUM DOLOR", Confidence: 85}
	broken    = carnet.StaticEngine{Err: carnet.ErrEngineFailure}
)

// swapEngine lets a test change what OCR reads between requests
type swapEngine struct {
	mu sync.Mutex
	e  carnet.Engine
}

func (s *swapEngine) Set(e carnet.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.e = e
}

func (s *swapEngine) ExtractText(ctx context.Context, img []byte, lang string) (string, float64, error) {
	s.mu.Lock()
	e := s.e
	s.mu.Unlock()

	return e.ExtractText(ctx, img, lang)
}

type harness struct {
	t      *testing.T
	router *gin.Engine
	deps   *internal.Deps
	ocr    *swapEngine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn := testutil.NewDB(t)
	photos := storage.NewDatabase(conn)
	argon := &security.Argon{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	ocr := &swapEngine{e: approving}
	pipeline := carnet.NewPipeline(nil, ocr)

	d := &internal.Deps{
		DB:       conn,
		Argon:    argon,
		Sessions: security.NewSessions("test-secret"),
		Admin:    security.AdminCredentials{Email: adminEmail, Password: adminPassword},
		Photos:   photos,
		Pipeline: pipeline,

		Registrar: service.NewRegistrar(conn, argon, photos, pipeline, nil),
		Moderator: service.NewModerator(conn, photos, nil),

		MaxPhotoSize: 1 << 20,
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return &harness{t: t, router: Mount(ctx, d), deps: d, ocr: ocr}
}

// photo returns a small PNG that differs for every seed, so photo hashes
// don't collide between users
func photo(seed int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{R: uint8(seed), G: uint8(seed >> 8), B: 7, A: 255})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func (h *harness) do(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	h.t.Helper()

	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return h.serve(req)
}

func (h *harness) serve(req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	h.t.Helper()

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" && bytes.HasPrefix(w.Body.Bytes(), []byte("{")) {
		require.NoError(h.t, json.Unmarshal(w.Body.Bytes(), &out))
	}

	return w, out
}

func registerBody(email, number string, seed int) gin.H {
	return gin.H{
		"email":         email,
		"password":      "secret123",
		"name":          "Ion Popescu",
		"carnet_number": number,
		"class":         "XI-A",
		"image_data":    "data:image/png;base64," + base64.StdEncoding.EncodeToString(photo(seed)),
	}
}

// register creates an account and returns its token
func (h *harness) register(email, number string, seed int) (string, map[string]any) {
	h.t.Helper()

	w, out := h.do(http.MethodPost, "/api/auth/register", "", registerBody(email, number, seed))
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())

	return out["token"].(string), out
}

func (h *harness) adminToken() string {
	h.t.Helper()

	w, out := h.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": adminEmail, "password": adminPassword})
	require.Equal(h.t, http.StatusOK, w.Code, w.Body.String())

	return out["token"].(string)
}

func ballot() gin.H {
	return gin.H{"vote_data": gin.H{
		"president":               "Ana",
		"vice_president":          "Mihai",
		"culture_minister":        "Elena",
		"administration_minister": "Radu",
		"social_media_minister":   "Ioana",
	}}
}

func TestHeartbeat(t *testing.T) {
	h := newHarness(t)

	w, _ := h.do(http.MethodHead, "/api/heartbeat", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestPreflight(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "https://vote.example")
	req.Header.Set("Access-Control-Request-Method", "POST")

	w, _ := h.serve(req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflightWithoutOrigin(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/api/vote", "/api/auth/login", "/api/status", "/api/admin"} {
		w, _ := h.do(http.MethodOptions, path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Empty(t, w.Body.String(), path)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newHarness(t)

	w, out := h.do(http.MethodGet, "/api/vote", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "Method not allowed", out["error"])
	assert.NotEmpty(t, out["requestID"])
}

func TestRegisterVoteFlow(t *testing.T) {
	h := newHarness(t)

	token, out := h.register("elev@utm.md", "UTM-1", 1)
	assert.Equal(t, "approved", out["status"])
	assert.Equal(t, true, out["auto_verified"])

	w, status := h.do(http.MethodGet, "/api/status", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, status["verified"])
	assert.Equal(t, false, status["has_voted"])

	w, _ = h.do(http.MethodPost, "/api/vote", token, ballot())
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, out = h.do(http.MethodPost, "/api/vote", token, ballot())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "You have already voted", out["error"])

	_, status = h.do(http.MethodGet, "/api/status", token, nil)
	assert.Equal(t, true, status["has_voted"])
}

func TestRegisterMultipart(t *testing.T) {
	h := newHarness(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("email", "multi@utm.md")
	mw.WriteField("password", "secret123")
	mw.WriteField("name", "Maria Rusu")
	mw.WriteField("carnet_number", "utm-77")
	mw.WriteField("class", "X-B")
	fw, err := mw.CreateFormFile("photo", "carnet.png")
	require.NoError(t, err)
	fw.Write(photo(77))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w, out := h.serve(req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	user := out["user"].(map[string]any)
	assert.Equal(t, "UTM-77", user["carnet_number"])
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)

	body := registerBody("elev@utm.md", "UTM-1", 1)
	delete(body, "carnet_number")
	w, out := h.do(http.MethodPost, "/api/auth/register", "", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Field carnet_number is required", out["error"])

	body = registerBody("not-an-email", "UTM-1", 1)
	w, _ = h.do(http.MethodPost, "/api/auth/register", "", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body = registerBody("elev@utm.md", "UTM-1", 1)
	body["password"] = "123"
	w, _ = h.do(http.MethodPost, "/api/auth/register", "", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body = registerBody("elev@utm.md", "UTM-1", 1)
	body["image_data"] = base64.StdEncoding.EncodeToString([]byte("plain text, not a photo"))
	w, _ = h.do(http.MethodPost, "/api/auth/register", "", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body = registerBody(adminEmail, "UTM-1", 1)
	w, _ = h.do(http.MethodPost, "/api/auth/register", "", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterDuplicates(t *testing.T) {
	h := newHarness(t)
	h.register("elev@utm.md", "UTM-1", 1)

	w, out := h.do(http.MethodPost, "/api/auth/register", "", registerBody("elev@utm.md", "UTM-2", 2))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, service.ErrEmailTaken.Error(), out["error"])

	w, out = h.do(http.MethodPost, "/api/auth/register", "", registerBody("other@utm.md", "UTM-1", 3))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, service.ErrCarnetApproved.Error(), out["error"])

	w, out = h.do(http.MethodPost, "/api/auth/register", "", registerBody("third@utm.md", "UTM-3", 1))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, service.ErrPhotoDuplicate.Error(), out["error"])
}

func TestUnverifiedCantVote(t *testing.T) {
	h := newHarness(t)
	h.ocr.Set(garbage)

	token, out := h.register("elev@utm.md", "UTM-1", 1)
	assert.Equal(t, "rejected", out["status"])

	w, _ := h.do(http.MethodPost, "/api/vote", token, ballot())
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = h.do(http.MethodPost, "/api/vote", "", ballot())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVoteIncompleteBallot(t *testing.T) {
	h := newHarness(t)
	token, _ := h.register("elev@utm.md", "UTM-1", 1)

	w, _ := h.do(http.MethodPost, "/api/vote", token, gin.H{"vote_data": gin.H{"president": "Ana"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = h.do(http.MethodPost, "/api/vote", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	h.register("elev@utm.md", "UTM-1", 1)

	w, out := h.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "Elev@UTM.md", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, out["token"])

	w, _ = h.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "elev@utm.md", "password": "wrong-one"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = h.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "nobody@utm.md", "password": "secret123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = h.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "elev@utm.md"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = h.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": adminEmail, "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSuperAdminStatus(t *testing.T) {
	h := newHarness(t)
	token := h.adminToken()

	w, status := h.do(http.MethodGet, "/api/status", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, status["verified"])
	assert.Equal(t, false, status["has_voted"])
	assert.Equal(t, true, status["user"].(map[string]any)["is_admin"])

	w, _ = h.do(http.MethodPost, "/api/vote", token, ballot())
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestResultsAdminOnly(t *testing.T) {
	h := newHarness(t)
	token, _ := h.register("elev@utm.md", "UTM-1", 1)
	h.do(http.MethodPost, "/api/vote", token, ballot())

	w, _ := h.do(http.MethodGet, "/api/results", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = h.do(http.MethodGet, "/api/results", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, out := h.do(http.MethodGet, "/api/results", h.adminToken(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), out["total_votes"])

	president := out["results"].(map[string]any)["president"].(map[string]any)
	assert.Equal(t, float64(100), president["Ana"].(map[string]any)["percentage"])
}

func TestPublicResultsCachedPerRouter(t *testing.T) {
	public := func() *harness {
		h := newHarness(t)
		h.deps.PublicResults = true
		h.deps.Cache = nil
		h.router = Mount(t.Context(), h.deps)
		return h
	}

	vote := func(h *harness) {
		token, _ := h.register("elev@utm.md", "UTM-1", 1)
		w, _ := h.do(http.MethodPost, "/api/vote", token, ballot())
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	first := public()
	w, out := first.do(http.MethodGet, "/api/results", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), out["total_votes"])

	// Served from cache until it expires
	vote(first)
	_, out = first.do(http.MethodGet, "/api/results", "", nil)
	assert.Equal(t, float64(0), out["total_votes"])

	second := public()
	vote(second)
	w, out = second.do(http.MethodGet, "/api/results", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), out["total_votes"])

	assert.NotSame(t, first.deps.Cache, second.deps.Cache)
}

func TestAdminModeration(t *testing.T) {
	h := newHarness(t)
	h.ocr.Set(broken)

	token, out := h.register("elev@utm.md", "UTM-1", 1)
	assert.Equal(t, "pending", out["status"])
	userID := out["user"].(map[string]any)["id"].(string)

	admin := h.adminToken()

	w, out := h.do(http.MethodGet, "/api/admin?action=pending_users", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	pending := out["pendingUsers"].([]any)
	require.Len(t, pending, 1)

	item := pending[0].(map[string]any)
	assert.Equal(t, userID, item["id"])

	w, _ = h.do(http.MethodGet, item["photo_url"].(string), admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w, _ = h.do(http.MethodGet, item["photo_url"].(string), token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = h.do(http.MethodPost, "/api/admin", admin, gin.H{"action": "verify_user", "userId": userID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, out = h.do(http.MethodPost, "/api/admin", admin, gin.H{"action": "verify_user", "userId": userID, "approve": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "approved", out["carnet"].(map[string]any)["status"])

	w, _ = h.do(http.MethodPost, "/api/admin", admin, gin.H{"action": "verify_user", "userId": userID, "approve": false})
	assert.Equal(t, http.StatusConflict, w.Code)

	_, status := h.do(http.MethodGet, "/api/status", token, nil)
	assert.Equal(t, true, status["verified"])

	w, _ = h.do(http.MethodPost, "/api/vote", token, ballot())
	require.Equal(t, http.StatusOK, w.Code)

	w, out = h.do(http.MethodGet, "/api/admin?action=stats", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := out["stats"].(map[string]any)
	assert.Equal(t, float64(1), stats["totalUsers"])
	assert.Equal(t, float64(1), stats["verifiedUsers"])
	assert.Equal(t, float64(1), stats["totalVotes"])
	assert.Equal(t, float64(100), stats["participationRate"])

	w, out = h.do(http.MethodPost, "/api/admin", admin, gin.H{"action": "disconnect_user", "userId": userID, "reason": "Fake carnet"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rejected", out["carnet"].(map[string]any)["status"])

	_, status = h.do(http.MethodGet, "/api/status", token, nil)
	assert.Equal(t, false, status["verified"])
	assert.Equal(t, false, status["has_voted"])
}

func TestAdminRequestResubmission(t *testing.T) {
	h := newHarness(t)
	token, out := h.register("elev@utm.md", "UTM-1", 1)
	userID := out["user"].(map[string]any)["id"].(string)
	admin := h.adminToken()

	w, out := h.do(http.MethodPost, "/api/admin", admin, gin.H{"action": "request_resubmission", "userId": userID, "reason": "Photo is blurry"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending", out["carnet"].(map[string]any)["status"])

	_, status := h.do(http.MethodGet, "/api/status", token, nil)
	assert.Equal(t, false, status["verified"])
	c := status["carnet"].(map[string]any)
	assert.Equal(t, true, c["resubmission_requested"])
	assert.Equal(t, "Photo is blurry", c["admin_note"])

	w, _ = h.do(http.MethodPost, "/api/vote", token, ballot())
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, out = h.do(http.MethodPost, "/api/carnet/resubmit", token, gin.H{
		"image_data": base64.StdEncoding.EncodeToString(photo(2)),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "approved", out["status"])
	assert.Equal(t, float64(2), out["attempts"])

	w, _ = h.do(http.MethodPost, "/api/carnet/resubmit", token, gin.H{
		"image_data": base64.StdEncoding.EncodeToString(photo(3)),
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAdminDeleteAndReset(t *testing.T) {
	h := newHarness(t)
	token, out := h.register("elev@utm.md", "UTM-1", 1)
	userID := out["user"].(map[string]any)["id"].(string)
	h.do(http.MethodPost, "/api/vote", token, ballot())

	admin := h.adminToken()

	w, out := h.do(http.MethodPost, "/api/admin", admin, gin.H{"action": "reset_votes"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), out["deleted"])

	w, _ = h.do(http.MethodPost, "/api/admin", admin, gin.H{"action": "delete_user", "userId": userID})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = h.do(http.MethodPost, "/api/admin", admin, gin.H{"action": "delete_user", "userId": userID})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = h.do(http.MethodGet, "/api/status", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = h.do(http.MethodPost, "/api/admin", admin, gin.H{"action": "delete_user", "userId": security.SuperAdminID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = h.do(http.MethodPost, "/api/admin", admin, gin.H{"action": "launch_rockets"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = h.do(http.MethodGet, "/api/admin?action=launch_rockets", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminLists(t *testing.T) {
	h := newHarness(t)
	token, _ := h.register("elev@utm.md", "UTM-1", 1)
	h.do(http.MethodPost, "/api/vote", token, ballot())
	admin := h.adminToken()

	w, out := h.do(http.MethodGet, "/api/admin?action=all_users", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, out["users"], 1)

	w, out = h.do(http.MethodGet, "/api/admin?action=export_data", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	votes := out["votes"].([]any)
	require.Len(t, votes, 1)
	assert.Equal(t, "elev@utm.md", votes[0].(map[string]any)["email"])

	w, out = h.do(http.MethodGet, "/api/admin?action=results", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), out["total_votes"])
}

func TestIssues(t *testing.T) {
	h := newHarness(t)

	report := gin.H{
		"email":       "elev@utm.md",
		"name":        "Ion Popescu",
		"phone":       "0712 345 678",
		"issue_type":  "login",
		"description": "I can't log in",
	}

	w, out := h.do(http.MethodPost, "/api/issues", "", report)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	issueID := out["issue_id"].(string)

	report["phone"] = "12345"
	w, _ = h.do(http.MethodPost, "/api/issues", "", report)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	admin := h.adminToken()

	w, out = h.do(http.MethodGet, "/api/admin?action=issues", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	issues := out["issues"].([]any)
	require.Len(t, issues, 1)
	assert.Equal(t, "0712345678", issues[0].(map[string]any)["phone"])

	w, out = h.do(http.MethodPost, "/api/admin", admin, gin.H{"action": "resolve_issue", "issueId": issueID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "resolved", out["issue"].(map[string]any)["status"])

	w, _ = h.do(http.MethodPost, "/api/admin", admin, gin.H{"action": "delete_issue", "issueId": issueID})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = h.do(http.MethodPost, "/api/admin", admin, gin.H{"action": "delete_issue", "issueId": issueID})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCarnetScan(t *testing.T) {
	h := newHarness(t)

	w, out := h.do(http.MethodPost, "/api/carnet/scan", "", gin.H{
		"expected_carnet": "utm-1",
		"image_data":      base64.StdEncoding.EncodeToString(photo(1)),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, out["utm_detected"])
	assert.Equal(t, true, out["validation"].(map[string]any)["is_valid"])

	h.ocr.Set(carnet.StaticEngine{Err: carnet.ErrQueueFull})
	w, _ = h.do(http.MethodPost, "/api/carnet/scan", "", gin.H{
		"image_data": base64.StdEncoding.EncodeToString(photo(1)),
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var n int64
	require.NoError(t, h.deps.DB.Table("photos").Count(&n).Error)
	assert.Zero(t, n)
}
