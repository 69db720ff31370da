package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/salesportal/internal/auth"
	"github.com/rpggio/salesportal/internal/domain/access"
	"github.com/rpggio/salesportal/internal/domain/activity"
	"github.com/rpggio/salesportal/internal/mcp"
)

type testHandler struct {
	method string
	sess   auth.Session
}

func (h *testHandler) Handle(_ context.Context, sess auth.Session, method string, _ json.RawMessage) (any, error) {
	h.method = method
	h.sess = sess
	switch method {
	case "denied":
		return nil, &mcp.APIError{Code: "ACCESS_DENIED", Message: "access denied"}
	case "broken":
		return nil, fmt.Errorf("disk on fire")
	case "resolve_access":
		return map[string]string{"login": sess.Login, "company": sess.Company}, nil
	}
	return nil, fmt.Errorf("%w: %s", mcp.ErrUnknownMethod, method)
}

type testAccounts struct{}

func (testAccounts) Authenticate(_ context.Context, login, password string) (*access.Account, error) {
	if password != "secret" {
		return nil, access.ErrInvalidCredentials
	}
	return testAccount(login), nil
}

func (testAccounts) Account(_ context.Context, login string) (*access.Account, error) {
	return testAccount(login), nil
}

func (testAccounts) SelectCompany(login, companyKey string) (access.Company, error) {
	switch companyKey {
	case "acme", "globex":
		if login == "dana" || companyKey == "acme" {
			return access.Company{Key: companyKey, Name: companyKey}, nil
		}
		return access.Company{}, fmt.Errorf("%w: %s", access.ErrAccessDenied, companyKey)
	}
	return access.Company{}, fmt.Errorf("%w: %q", access.ErrUnknownCompany, companyKey)
}

func testAccount(login string) *access.Account {
	if login == "dana" {
		return &access.Account{Login: login, Companies: []access.Company{{Key: "acme"}, {Key: "globex"}}}
	}
	return &access.Account{Login: login, Companies: []access.Company{{Key: "acme"}}}
}

type testAudit struct {
	types []activity.ActivityType
}

func (a *testAudit) Record(_ context.Context, _, _ string, typ activity.ActivityType, _ string, _ any) {
	a.types = append(a.types, typ)
}

type fixture struct {
	url     string
	handler *testHandler
	audit   *testAudit
	issuer  *auth.Issuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{handler: &testHandler{}, audit: &testAudit{}, issuer: newIssuer(t)}
	server := httptest.NewServer(NewServer(Options{
		RPC:      f.handler,
		Accounts: testAccounts{},
		Tokens:   f.issuer,
		Audit:    f.audit,
	}))
	t.Cleanup(server.Close)
	f.url = server.URL
	return f
}

func (f *fixture) post(t *testing.T, path, token, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.url+path, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHTTPServer_LoginAndRPC(t *testing.T) {
	f := newFixture(t)

	resp, body := f.post(t, "/v1/auth/login", "", `{"login":"Erik","password":"secret"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "acme", body["company"])
	token := body["token"].(string)

	resp, body = f.post(t, "/v1/rpc", token, `{"jsonrpc":"2.0","method":"resolve_access","id":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "resolve_access", f.handler.method)
	require.Equal(t, auth.Session{Login: "erik", Company: "acme"}, f.handler.sess)
	require.Equal(t, map[string]any{"login": "erik", "company": "acme"}, body["result"])
	require.Equal(t, []activity.ActivityType{activity.TypeLogin}, f.audit.types)
}

func TestHTTPServer_LoginFailure(t *testing.T) {
	f := newFixture(t)

	resp, body := f.post(t, "/v1/auth/login", "", `{"login":"erik","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "INVALID_CREDENTIALS", body["error"].(map[string]any)["code"])
	require.Equal(t, []activity.ActivityType{activity.TypeLoginFailed}, f.audit.types)
}

func TestHTTPServer_SelectCompany(t *testing.T) {
	f := newFixture(t)
	_, body := f.post(t, "/v1/auth/login", "", `{"login":"dana","password":"secret"}`)
	require.Nil(t, body["company"], "multi-company users pick explicitly")
	token := body["token"].(string)

	resp, body := f.post(t, "/v1/auth/company", token, `{"company":"globex"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "globex", body["company"])
	sess, err := f.issuer.Parse(body["token"].(string))
	require.NoError(t, err)
	require.Equal(t, "globex", sess.Company)

	resp, _ = f.post(t, "/v1/auth/company", token, `{"company":"initech"}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, body = f.post(t, "/v1/auth/login", "", `{"login":"erik","password":"secret"}`)
	resp, _ = f.post(t, "/v1/auth/company", body["token"].(string), `{"company":"globex"}`)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Contains(t, f.audit.types, activity.TypeAccessDenied)
}

func TestHTTPServer_RPCErrors(t *testing.T) {
	f := newFixture(t)
	token, err := f.issuer.Issue(auth.Session{Login: "erik"})
	require.NoError(t, err)

	cases := []struct {
		body string
		code float64
	}{
		{`{"jsonrpc":"2.0","method":"denied","id":1}`, ErrApplication},
		{`{"jsonrpc":"2.0","method":"nope","id":1}`, ErrMethodNotFound},
		{`{"jsonrpc":"2.0","method":"broken","id":1}`, ErrInternal},
		{`{"jsonrpc":"2.0","id":1}`, ErrInvalidReq},
		{`{"jsonrpc":`, ErrParseCode},
	}
	for _, tc := range cases {
		resp, body := f.post(t, "/v1/rpc", token.Token, tc.body)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, tc.code, body["error"].(map[string]any)["code"], tc.body)
	}

	resp, _ := f.post(t, "/v1/rpc", "", `{"jsonrpc":"2.0","method":"resolve_access","id":1}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHTTPServer_Me(t *testing.T) {
	f := newFixture(t)
	token, err := f.issuer.Issue(auth.Session{Login: "dana", Company: "globex"})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, f.url+"/v1/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token.Token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "globex", body.Company)
	require.Len(t, body.Account.Companies, 2)
	require.Empty(t, body.Token)
}

func TestHTTPServer_Health(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.url + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
