package verification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"phoneverify/internal/ratelimit"
	"phoneverify/internal/session"
	"phoneverify/internal/upstream"
)

const testPhone = "+998998888931"

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeUpstream struct {
	mu         sync.Mutex
	logins     int
	codeCalls  int
	loginErr   error
	loginCreds upstream.Credentials
	codeBody   []byte
	codeErr    error
	gotCreds   upstream.Credentials
	gotPhone   string
	panicOn    string
}

func (f *fakeUpstream) Login(context.Context) (upstream.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	if f.panicOn == "login" {
		panic("boom")
	}
	return f.loginCreds, f.loginErr
}

func (f *fakeUpstream) RequestCode(_ context.Context, phoneNumber string, creds upstream.Credentials) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codeCalls++
	f.gotPhone = phoneNumber
	f.gotCreds = creds
	return f.codeBody, f.codeErr
}

type fakeNotifier struct {
	mu         sync.Mutex
	deliveries []Outcome
	chats      []int64
	err        error
}

func (n *fakeNotifier) Deliver(_ context.Context, chatID int64, out Outcome) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliveries = append(n.deliveries, out)
	n.chats = append(n.chats, chatID)
	return n.err
}

type runRecorder struct {
	mu   sync.Mutex
	runs []Run
}

func (r *runRecorder) ObserveRun(_ context.Context, run Run) {
	r.mu.Lock()
	r.runs = append(r.runs, run)
	r.mu.Unlock()
}

type harness struct {
	up       *fakeUpstream
	notifier *fakeNotifier
	limiter  *ratelimit.Limiter
	codec    *session.Codec
	runs     *runRecorder
	orch     *Orchestrator
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		up:       &fakeUpstream{},
		notifier: &fakeNotifier{},
		runs:     &runRecorder{},
		now:      time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return h.now }
	h.limiter = ratelimit.New(ratelimit.Config{MaxAttempts: 5, Window: 600 * time.Second}, ratelimit.WithClock(clock))
	codec, err := session.NewCodec([]byte("test-secret"), session.WithClock(clock))
	if err != nil {
		t.Fatal(err)
	}
	h.codec = codec
	h.orch = New(h.up, h.limiter, h.notifier, codec,
		WithLogger(quiet), WithObserver(h.runs), WithClock(clock))
	return h
}

func TestRunDirectDelivered(t *testing.T) {
	h := newHarness(t)
	h.up.codeBody = []byte(`{"result":{"code":"7788"}}`)

	out := h.orch.RunDirect(context.Background(), testPhone, 42, &upstream.Credentials{AccessToken: "A", RefreshToken: "R"})

	if out.State != StateDelivered || out.Code != "7788" || out.PhoneNumber != testPhone {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Attempt != 1 || out.MaxAttempts != 5 {
		t.Fatalf("attempt = %d/%d", out.Attempt, out.MaxAttempts)
	}
	if h.up.logins != 0 {
		t.Fatalf("login called %d times with credentials supplied", h.up.logins)
	}
	if h.up.gotCreds.AccessToken != "A" || h.up.gotCreds.RefreshToken != "R" {
		t.Fatalf("credentials passed = %+v", h.up.gotCreds)
	}
	if len(h.notifier.deliveries) != 1 || h.notifier.chats[0] != 42 {
		t.Fatalf("deliveries = %d to %v, want exactly one to 42", len(h.notifier.deliveries), h.notifier.chats)
	}
	if h.notifier.deliveries[0].Code != "7788" {
		t.Fatalf("delivered outcome = %+v", h.notifier.deliveries[0])
	}
	if len(h.runs.runs) != 1 || h.runs.runs[0].Source != SourceDirect {
		t.Fatalf("runs = %+v", h.runs.runs)
	}
}

func TestRunDirectAgainstHTTPUpstream(t *testing.T) {
	var codeRequests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/phoneNumberVerification":
			codeRequests++
			if r.URL.Query().Get("phoneNumber") != testPhone {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if r.Header.Get("accessToken") == "expired" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"result":{"code":"7788"}}`))
		default:
			t.Errorf("unexpected upstream call %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	h := newHarness(t)
	client := upstream.NewClient(upstream.Config{BaseURL: srv.URL}, upstream.WithLogger(quiet))
	h.orch = New(client, h.limiter, h.notifier, h.codec, WithLogger(quiet))

	out := h.orch.RunDirect(context.Background(), testPhone, 42, &upstream.Credentials{AccessToken: "A", RefreshToken: "R"})
	if !out.Delivered() || out.Code != "7788" {
		t.Fatalf("outcome = %+v", out)
	}

	out = h.orch.RunDirect(context.Background(), testPhone, 42, &upstream.Credentials{AccessToken: "expired", RefreshToken: "R"})
	if out.State != StateFailed || out.Kind() != KindAuth {
		t.Fatalf("outcome = %+v, want AUTH_ERROR", out)
	}
	if codeRequests != 2 {
		t.Fatalf("code requests = %d, want 2 (no retry)", codeRequests)
	}
	if len(h.notifier.deliveries) != 2 {
		t.Fatalf("deliveries = %d, want 2", len(h.notifier.deliveries))
	}
	if h.notifier.deliveries[1].Kind() != KindAuth {
		t.Fatalf("second delivery = %+v, want auth error", h.notifier.deliveries[1])
	}
}

func TestRunDirectAuthError(t *testing.T) {
	h := newHarness(t)
	h.up.codeErr = &upstream.Error{Op: "request_code", Status: 401, Err: upstream.ErrUnauthorized}

	out := h.orch.RunDirect(context.Background(), testPhone, 42, &upstream.Credentials{AccessToken: "A", RefreshToken: "R"})

	if out.State != StateFailed || out.Kind() != KindAuth {
		t.Fatalf("outcome = %+v, want AUTH_ERROR", out)
	}
	if h.up.codeCalls != 1 {
		t.Fatalf("code calls = %d, want 1", h.up.codeCalls)
	}
	if len(h.notifier.deliveries) != 1 || h.notifier.deliveries[0].Kind() != KindAuth {
		t.Fatalf("deliveries = %+v", h.notifier.deliveries)
	}
}

func TestRunDirectBlocked(t *testing.T) {
	h := newHarness(t)
	for iter := 0; iter < 5; iter++ {
		h.limiter.Record(42)
		h.now = h.now.Add(time.Second)
	}

	out := h.orch.RunDirect(context.Background(), testPhone, 42, &upstream.Credentials{AccessToken: "A", RefreshToken: "R"})

	if out.State != StateBlocked || out.Kind() != KindBlocked {
		t.Fatalf("outcome = %+v, want blocked", out)
	}
	if out.RetryAfter != 595*time.Second || out.RetryAfterSeconds() != 595 {
		t.Fatalf("RetryAfter = %v", out.RetryAfter)
	}
	if h.up.logins != 0 || h.up.codeCalls != 0 {
		t.Fatalf("upstream called: logins=%d code=%d", h.up.logins, h.up.codeCalls)
	}
	if len(h.notifier.deliveries) != 1 || h.notifier.deliveries[0].State != StateBlocked {
		t.Fatalf("deliveries = %+v", h.notifier.deliveries)
	}

	// без логина тоже ничего не вызывается
	_ = h.orch.RunDirect(context.Background(), testPhone, 42, nil)
	if h.up.logins != 0 || h.up.codeCalls != 0 {
		t.Fatalf("upstream called on auto run: logins=%d code=%d", h.up.logins, h.up.codeCalls)
	}
}

func TestAttemptCountsEvenWhenUpstreamFails(t *testing.T) {
	h := newHarness(t)
	h.up.codeErr = &upstream.Error{Op: "request_code", Err: upstream.ErrNetwork}
	for iter := 0; iter < 5; iter++ {
		out := h.orch.RunDirect(context.Background(), testPhone, 42, &upstream.Credentials{AccessToken: "A"})
		if out.Kind() != KindNetwork {
			t.Fatalf("outcome = %+v", out)
		}
	}
	if out := h.orch.RunDirect(context.Background(), testPhone, 42, &upstream.Credentials{AccessToken: "A"}); out.State != StateBlocked {
		t.Fatalf("6th run = %+v, want blocked", out)
	}
	if h.up.codeCalls != 5 {
		t.Fatalf("code calls = %d", h.up.codeCalls)
	}
}

func TestRunDirectAutoLogin(t *testing.T) {
	h := newHarness(t)
	h.up.loginCreds = upstream.Credentials{AccessToken: "LA", RefreshToken: "LR"}
	h.up.codeBody = []byte(`{"data":{"verificationCode":5512}}`)

	out := h.orch.RunDirect(context.Background(), "998 99 888-89-31", 7, nil)

	if !out.Delivered() || out.Code != "5512" || out.PhoneNumber != testPhone {
		t.Fatalf("outcome = %+v", out)
	}
	if h.up.logins != 1 || h.up.gotCreds.AccessToken != "LA" || h.up.gotPhone != testPhone {
		t.Fatalf("logins=%d creds=%+v phone=%q", h.up.logins, h.up.gotCreds, h.up.gotPhone)
	}
	if h.runs.runs[0].Source != SourceAuto {
		t.Fatalf("source = %s", h.runs.runs[0].Source)
	}
}

func TestLoginFailureMapping(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{&upstream.Error{Op: "login", Status: 500, Err: upstream.ErrLoginStatus}, KindLoginAPI},
		{&upstream.Error{Op: "login", Err: upstream.ErrNotConfigured}, KindLoginAPI},
		{&upstream.Error{Op: "login", Status: 200, Err: upstream.ErrInvalidResponse}, KindInvalidResponse},
		{&upstream.Error{Op: "login", Status: 200, Err: upstream.ErrTokensNotFound}, KindTokensNotFound},
		{&upstream.Error{Op: "login", Err: upstream.ErrNetwork}, KindNetwork},
		{errors.New("weird"), KindUnknown},
	}
	for _, tc := range cases {
		h := newHarness(t)
		h.up.loginErr = tc.err
		out := h.orch.RunDirect(context.Background(), testPhone, 1, nil)
		if out.Kind() != tc.want {
			t.Errorf("login err %v: kind = %s, want %s", tc.err, out.Kind(), tc.want)
		}
		if h.up.codeCalls != 0 {
			t.Errorf("login err %v: code requested after failed login", tc.err)
		}
		if len(h.notifier.deliveries) != 1 {
			t.Errorf("login err %v: deliveries = %d", tc.err, len(h.notifier.deliveries))
		}
	}
}

func TestCodeFailureMapping(t *testing.T) {
	cases := []struct {
		name string
		body []byte
		err  error
		want Kind
	}{
		{"api status", nil, &upstream.Error{Status: 500, Body: []byte("fail"), Err: upstream.ErrAPIStatus}, KindAPI},
		{"network", nil, &upstream.Error{Err: upstream.ErrNetwork}, KindNetwork},
		{"no code", []byte(`{"status":200}`), nil, KindCodeNotFound},
		{"not json", []byte(`ok`), nil, KindCodeNotFound},
		{"unexpected", nil, errors.New("weird"), KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.up.codeBody = tc.body
			h.up.codeErr = tc.err
			out := h.orch.RunDirect(context.Background(), testPhone, 1, &upstream.Credentials{AccessToken: "A"})
			if out.Kind() != tc.want {
				t.Fatalf("kind = %s, want %s", out.Kind(), tc.want)
			}
		})
	}
}

func TestCodeNotFoundKeepsRawBody(t *testing.T) {
	h := newHarness(t)
	h.up.codeBody = []byte(`{"status":200,"message":"sent"}`)
	out := h.orch.RunDirect(context.Background(), testPhone, 1, &upstream.Credentials{AccessToken: "A"})
	if out.Err == nil || string(out.Err.Raw) != `{"status":200,"message":"sent"}` {
		t.Fatalf("raw body not kept: %+v", out.Err)
	}
}

func TestAPIErrorKeepsUpstreamBody(t *testing.T) {
	h := newHarness(t)
	h.up.codeErr = &upstream.Error{Status: 503, Body: []byte("maintenance"), Err: upstream.ErrAPIStatus}
	out := h.orch.RunDirect(context.Background(), testPhone, 1, &upstream.Credentials{AccessToken: "A"})
	if out.Err == nil || string(out.Err.Raw) != "maintenance" {
		t.Fatalf("err = %+v", out.Err)
	}
	if out.Err.Detail != "Ошибка API (HTTP 503)" {
		t.Fatalf("detail = %q", out.Err.Detail)
	}
}

func TestInvalidPhoneDoesNotConsumeAttempt(t *testing.T) {
	h := newHarness(t)
	out := h.orch.RunDirect(context.Background(), "12ab", 9, nil)
	if out.Kind() != KindInvalidPhone {
		t.Fatalf("kind = %s", out.Kind())
	}
	if d := h.limiter.Check(9); d.Attempts != 0 {
		t.Fatalf("attempts = %d, want 0", d.Attempts)
	}
	if h.up.logins != 0 || len(h.notifier.deliveries) != 1 {
		t.Fatalf("logins=%d deliveries=%d", h.up.logins, len(h.notifier.deliveries))
	}
}

func TestRunFromSession(t *testing.T) {
	h := newHarness(t)
	h.up.codeBody = []byte(`{"otp":"1111"}`)
	token, err := h.codec.Encode(session.New(testPhone, "SA", "SR", h.now))
	if err != nil {
		t.Fatal(err)
	}

	out := h.orch.RunFromSession(context.Background(), token, 42)

	if !out.Delivered() || out.Code != "1111" || out.PhoneNumber != testPhone {
		t.Fatalf("outcome = %+v", out)
	}
	if h.up.logins != 0 || h.up.gotCreds.AccessToken != "SA" || h.up.gotCreds.RefreshToken != "SR" {
		t.Fatalf("logins=%d creds=%+v", h.up.logins, h.up.gotCreds)
	}
	if h.runs.runs[0].Source != SourceLink {
		t.Fatalf("source = %s", h.runs.runs[0].Source)
	}
}

func TestRunFromSessionFailures(t *testing.T) {
	h := newHarness(t)
	valid := session.New(testPhone, "SA", "SR", h.now)

	expired, _ := h.codec.Encode(session.New(testPhone, "SA", "SR", h.now.Add(-25*time.Hour)))
	wrong := valid
	wrong.Kind = "password_reset"
	wrongKind, _ := h.codec.Encode(wrong)

	cases := []struct {
		name  string
		token string
		want  Kind
	}{
		{"expired", expired, KindExpired},
		{"wrong kind", wrongKind, KindWrongKind},
		{"garbage", "not-a-token", KindMalformedToken},
		{"empty", "", KindMalformedToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := len(h.notifier.deliveries)
			out := h.orch.RunFromSession(context.Background(), tc.token, 42)
			if out.State != StateFailed || out.Kind() != tc.want {
				t.Fatalf("outcome = %+v, want %s", out, tc.want)
			}
			if !out.Kind().IsSessionFailure() {
				t.Fatalf("%s not a session failure", out.Kind())
			}
			if len(h.notifier.deliveries) != before+1 {
				t.Fatal("expected exactly one delivery")
			}
		})
	}
	if h.up.logins != 0 || h.up.codeCalls != 0 {
		t.Fatalf("upstream called for bad session: logins=%d code=%d", h.up.logins, h.up.codeCalls)
	}
	if d := h.limiter.Check(42); d.Attempts != 0 {
		t.Fatalf("bad sessions consumed %d attempts", d.Attempts)
	}
}

func TestDeliveryFailureDoesNotChangeOutcome(t *testing.T) {
	h := newHarness(t)
	h.up.codeBody = []byte(`{"code":"9090"}`)
	h.notifier.err = errors.New("telegram down")

	out := h.orch.RunDirect(context.Background(), testPhone, 42, &upstream.Credentials{AccessToken: "A"})

	if !out.Delivered() || out.Code != "9090" {
		t.Fatalf("outcome = %+v", out)
	}
	if out.DeliveryErr == nil {
		t.Fatal("DeliveryErr not reported")
	}
}

type panickingNotifier struct{ calls int }

func (p *panickingNotifier) Deliver(context.Context, int64, Outcome) error {
	p.calls++
	panic("notifier exploded")
}

func TestPanicsBecomeUnknownError(t *testing.T) {
	h := newHarness(t)
	h.up.panicOn = "login"

	out := h.orch.RunDirect(context.Background(), testPhone, 42, nil)
	if out.State != StateFailed || out.Kind() != KindUnknown {
		t.Fatalf("outcome = %+v", out)
	}
	if len(h.notifier.deliveries) != 1 || h.notifier.deliveries[0].Kind() != KindUnknown {
		t.Fatalf("deliveries = %+v", h.notifier.deliveries)
	}

	pn := &panickingNotifier{}
	h.up.panicOn = ""
	h.up.codeBody = []byte(`{"code":"1"}`)
	orch := New(h.up, ratelimit.New(ratelimit.Config{}), pn, h.codec, WithLogger(quiet))
	out = orch.RunDirect(context.Background(), testPhone, 43, &upstream.Credentials{AccessToken: "A"})
	if !out.Delivered() || out.DeliveryErr == nil || pn.calls != 1 {
		t.Fatalf("outcome = %+v calls = %d", out, pn.calls)
	}
}

func TestConcurrentRunsRespectLimit(t *testing.T) {
	h := newHarness(t)
	h.up.codeBody = []byte(`{"code":"1"}`)

	var wg sync.WaitGroup
	results := make(chan Outcome, 20)
	for iter := 0; iter < 20; iter++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- h.orch.RunDirect(context.Background(), testPhone, 77, &upstream.Credentials{AccessToken: "A"})
		}()
	}
	wg.Wait()
	close(results)

	delivered, blocked := 0, 0
	for out := range results {
		switch out.State {
		case StateDelivered:
			delivered++
		case StateBlocked:
			blocked++
		}
	}
	if delivered != 5 || blocked != 15 {
		t.Fatalf("delivered=%d blocked=%d, want 5/15", delivered, blocked)
	}
	if h.up.codeCalls != 5 {
		t.Fatalf("code calls = %d", h.up.codeCalls)
	}
}
