package rbac

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sokoerp/sokoerp/internal/shared"
)

type fakeDirectory struct {
	principals map[uuid.UUID]shared.Principal
}

func (d fakeDirectory) Lookup(_ context.Context, userID uuid.UUID) (shared.Principal, error) {
	p, ok := d.principals[userID]
	if !ok {
		return shared.Principal{}, fmt.Errorf("%w: user %s", shared.ErrNotFound, userID)
	}
	return p, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestPrincipalResolvesHeader(t *testing.T) {
	userID := uuid.New()
	mw := Middleware{Directory: fakeDirectory{principals: map[uuid.UUID]shared.Principal{
		userID: {UserID: userID, Username: "wanjiru", Capabilities: Capabilities(RoleCashier)},
	}}}

	var seen shared.Principal
	handler := mw.Principal(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = shared.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", userID.String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "wanjiru", seen.Username)
}

func TestPrincipalRejectsMissingHeader(t *testing.T) {
	mw := Middleware{Directory: fakeDirectory{}}
	rec := httptest.NewRecorder()
	mw.Principal(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPrincipalRejectsUnknownUser(t *testing.T) {
	mw := Middleware{Directory: fakeDirectory{}}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", uuid.NewString())
	rec := httptest.NewRecorder()
	mw.Principal(okHandler()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireCapability(t *testing.T) {
	mw := Middleware{}
	cashier := shared.Principal{UserID: uuid.New(), Capabilities: Capabilities(RoleCashier)}

	cases := []struct {
		name string
		cap  string
		want int
	}{
		{"granted", CapSalesWrite, http.StatusOK},
		{"denied", CapSalesRefund, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req = req.WithContext(shared.ContextWithPrincipal(req.Context(), cashier))
			rec := httptest.NewRecorder()
			mw.Require(tc.cap)(okHandler()).ServeHTTP(rec, req)
			require.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRequireWithoutPrincipal(t *testing.T) {
	mw := Middleware{}
	rec := httptest.NewRecorder()
	mw.Require(CapSalesRead)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoleCapabilitySets(t *testing.T) {
	require.True(t, RoleAdmin.Valid())
	require.False(t, Role("OWNER").Valid())

	admin := Capabilities(RoleAdmin)
	require.Contains(t, admin, CapUsersManage)

	storekeeper := Capabilities(RoleStorekeeper)
	require.Contains(t, storekeeper, CapInventoryWrite)
	require.NotContains(t, storekeeper, CapSalesWrite)

	require.Nil(t, Capabilities(Role("OWNER")))
}
