package controller

import (
	"encoding/hex"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/contracts/election"
	"go.dedis.ch/ballot/core/store/kv"
	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/internal/testing/fake"
)

var epoch = time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)

func TestHandlers_Elections(t *testing.T) {
	router := makeRouter(t, fakeClock{now: epoch.Add(time.Minute)})

	rec := serve(router, "/elections")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp []ElectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	require.Equal(t, int64(1), resp[0].ID)
	require.Equal(t, "active", resp[0].Status)
	require.Equal(t, []OptionResponse{{0, "Yes", 1}, {1, "No", 0}}, resp[0].Options)
}

func TestHandlers_Election(t *testing.T) {
	router := makeRouter(t, fakeClock{err: fake.GetError()})

	rec := serve(router, "/elections/1")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ElectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "referendum", resp.Name)
	require.Equal(t, statusUnknown, resp.Status)
	require.Equal(t, hex.EncodeToString([]byte("ADMIN")), resp.Issuer)

	rec = serve(router, "/elections/2")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(router, "/elections/abc")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlers_Participant(t *testing.T) {
	router := makeRouter(t, fakeClock{})

	rec := serve(router, "/participants/"+hex.EncodeToString([]byte("VOTER")))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "secret")

	var resp ParticipantResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "alice", resp.Name)

	rec = serve(router, "/participants/"+hex.EncodeToString([]byte("ADMIN")))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(router, "/participants/xyz")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlers_Administration(t *testing.T) {
	router := makeRouter(t, fakeClock{})

	rec := serve(router, "/administrations/"+hex.EncodeToString([]byte("ADMIN")))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AdministrationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "gov", resp.Name)
	require.Equal(t, "", resp.PrincipalKey)

	rec = serve(router, "/administrations/"+hex.EncodeToString([]byte("VOTER")))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(router, "/administrations/xyz")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlers_State(t *testing.T) {
	router := makeRouter(t, fakeClock{})

	rec := serve(router, "/state")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Votes, 64)
	require.NotEqual(t, resp.Participants, resp.Administrations)
}

func TestHandlers_BadDB(t *testing.T) {
	h := NewHandlers(fake.NewBadDB(), fakeClock{}, crypto.NewSha256Factory())

	p := newFakeProxy()
	h.Register(p)

	for _, path := range []string{"/elections", "/elections/1", "/participants/aa", "/administrations/aa", "/state"} {
		rec := serve(p.router, path)
		require.Equal(t, http.StatusInternalServerError, rec.Code, path)
	}
}

// -----------------------------------------------------------------------------
// Utility functions

type fakeClock struct {
	now time.Time
	err error
}

func (c fakeClock) Now(kv.ReadableTx) (time.Time, error) {
	return c.now, c.err
}

type fakeProxy struct {
	router *mux.Router
}

func newFakeProxy() fakeProxy {
	return fakeProxy{router: mux.NewRouter()}
}

func (p fakeProxy) Listen() {}

func (p fakeProxy) Stop() {}

func (p fakeProxy) GetAddr() net.Addr {
	return nil
}

func (p fakeProxy) RegisterHandler(path string, handler func(http.ResponseWriter, *http.Request)) {
	p.router.HandleFunc(path, handler)
}

func makeRouter(t *testing.T, clock election.Clock) *mux.Router {
	db := fake.NewInMemoryDB()

	err := db.Update(func(tx kv.WritableTx) error {
		schema := election.NewSchema(tx)

		require.NoError(t, schema.CreateAdministration([]byte("ADMIN"), "gov", nil, []byte{1}))
		require.NoError(t, schema.CreateParticipant([]byte("VOTER"), "alice", "", "", "secret", []byte{2}))

		_, err := schema.IssueElection("referendum", []byte("ADMIN"), epoch, epoch.Add(time.Hour),
			[]string{"Yes", "No"}, []byte{3})
		require.NoError(t, err)

		return schema.Vote(1, []byte("VOTER"), 0, []byte{4})
	})
	require.NoError(t, err)

	p := newFakeProxy()
	NewHandlers(db, clock, crypto.NewSha256Factory()).Register(p)

	return p.router
}

func serve(router *mux.Router, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	return rec
}
