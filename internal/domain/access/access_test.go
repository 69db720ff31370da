package access_test

import (
	"context"
	"testing"

	"github.com/rpggio/salesportal/internal/auth"
	"github.com/rpggio/salesportal/internal/config"
	"github.com/rpggio/salesportal/internal/domain/access"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testPortal(t *testing.T) config.Portal {
	t.Helper()
	hash, err := auth.HashPassword("pw", bcrypt.MinCost)
	require.NoError(t, err)

	return config.Portal{
		AdminLogins: []string{"admin", "operations"},
		Companies:   map[string]string{"acme": "Acme Corp", "globex": "", "initech": ""},
		Users: map[string]config.User{
			"admin":  {PasswordHash: hash, Company: config.CompanyAssignment{Admin: true}},
			"dana":   {PasswordHash: hash, Company: config.CompanyAssignment{Keys: []string{"acme"}}},
			"lee":    {PasswordHash: hash, Company: config.CompanyAssignment{Keys: []string{"acme", "globex"}}},
			"walter": {PasswordHash: hash, Company: config.CompanyAssignment{Keys: []string{"acme", "globex"}}},
			"fox":    {Password: "legacy", Company: config.CompanyAssignment{Keys: []string{"acme"}}},
		},
		Teams: map[string]map[string][]string{
			"acme": {
				"dana": {"dana", "fox"},
				"blue": {"lee", "Walter@corp.com"},
			},
			"globex": {
				"red": {"zed"},
			},
		},
		Directors: map[string]map[string]config.StringList{
			"acme": {"walter": {"dana", "blue"}},
		},
	}
}

func TestResolver_Rules(t *testing.T) {
	r := access.NewResolver(testPortal(t))

	require.Equal(t, access.AllRecords(), r.Resolve("Admin@corp.com", "acme"))
	require.Equal(t, access.TeamRoster([]string{"dana", "fox", "lee", "walter"}), r.Resolve("walter", "acme"))
	require.Equal(t, access.TeamRoster([]string{"dana", "fox"}), r.Resolve("dana", "acme"))
	require.Equal(t, access.SelfOnly("fox"), r.Resolve("fox", "acme"))
}

func TestResolver_DirectorScopeIsCompanyScoped(t *testing.T) {
	r := access.NewResolver(testPortal(t))

	// walter directs teams under acme only; under globex he is a regular user.
	require.Equal(t, access.SelfOnly("walter"), r.Resolve("walter", "globex"))
	// dana leads a team under acme, not under globex.
	require.Equal(t, access.SelfOnly("dana"), r.Resolve("dana", "globex"))
}

func TestResolver_DirectorSameNamedTeamAcrossCompanies(t *testing.T) {
	portal := config.Portal{
		Companies: map[string]string{"c1": "", "c2": ""},
		Teams: map[string]map[string][]string{
			"c1": {"Sales": {"amy", "bob"}},
			"c2": {"Sales": {"bob", "cat"}},
		},
		Directors: map[string]map[string]config.StringList{
			"c1": {"dir": {"Sales"}},
			"c2": {"dir": {"Sales"}},
		},
	}
	r := access.NewResolver(portal)

	c1 := r.Resolve("dir", "c1")
	require.Equal(t, access.TeamRoster([]string{"amy", "bob"}), c1)
	require.False(t, c1.Includes("cat"))
	require.Equal(t, access.TeamRoster([]string{"bob", "cat"}), r.Resolve("dir", "c2"))
}

func TestResolver_DuplicateKeysResolveStably(t *testing.T) {
	portal := config.Portal{
		Companies: map[string]string{"acme": ""},
		Teams: map[string]map[string][]string{
			"acme": {"Dana": {"dana", "fox"}, "dana": {"dana", "lee"}, "blue": {"zed"}},
		},
		Directors: map[string]map[string]config.StringList{
			"acme": {"walter": {"blue"}, "Walter@corp.com": {"Dana"}},
		},
	}
	r := access.NewResolver(portal)

	for range 20 {
		require.Equal(t, access.TeamRoster([]string{"dana", "fox"}), r.Resolve("walter", "acme"))
		require.Equal(t, access.TeamRoster([]string{"dana", "fox"}), r.Resolve("dana", "acme"))
	}
}

func TestResolver_Deterministic(t *testing.T) {
	r := access.NewResolver(testPortal(t))
	require.Equal(t, r.Resolve("walter", "acme"), r.Resolve("walter", "acme"))
	require.Equal(t, []string{"blue", "dana"}, r.VisibleTeams("walter", "acme"))
	require.Equal(t, []string{"blue", "dana"}, r.VisibleTeams("admin", "acme"))
	require.Nil(t, r.VisibleTeams("dana", "acme"))
}

func TestScope_Fragments(t *testing.T) {
	s := access.TeamRoster([]string{"J.Smith@corp.com", "j-smith", "ann"})
	require.Equal(t, []string{"ann", "jsmith"}, s.Fragments())
	require.True(t, s.Includes("ANN"))
	require.False(t, s.Includes("bob"))
	require.True(t, access.AllRecords().Includes("anyone"))
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	svc := access.NewService(testPortal(t), access.NewResolver(testPortal(t)), nil, nil)

	acct, err := svc.Authenticate(ctx, " Dana ", "pw")
	require.NoError(t, err)
	require.Equal(t, "dana", acct.Login)
	require.Equal(t, "Dana", acct.DisplayName)
	key, ok := acct.DefaultCompany()
	require.True(t, ok)
	require.Equal(t, "acme", key)

	_, err = svc.Authenticate(ctx, "dana", "wrong")
	require.ErrorIs(t, err, access.ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody", "pw")
	require.ErrorIs(t, err, access.ErrInvalidCredentials)

	acct, err = svc.Authenticate(ctx, "fox", "legacy")
	require.NoError(t, err)
	require.Equal(t, "fox", acct.Login)
}

func TestService_CompanyChoices(t *testing.T) {
	ctx := context.Background()
	svc := access.NewService(testPortal(t), access.NewResolver(testPortal(t)), nil, nil)

	admin, err := svc.Account(ctx, "admin")
	require.NoError(t, err)
	require.True(t, admin.Admin)
	require.Equal(t, []access.Company{
		{Key: "acme", Name: "Acme Corp"},
		{Key: "globex", Name: "Globex"},
		{Key: "initech", Name: "Initech"},
	}, admin.Companies)
	_, ok := admin.DefaultCompany()
	require.False(t, ok)

	lee, err := svc.Account(ctx, "lee")
	require.NoError(t, err)
	require.Len(t, lee.Companies, 2)
	_, ok = lee.DefaultCompany()
	require.False(t, ok)
}

func TestService_Authorize(t *testing.T) {
	svc := access.NewService(testPortal(t), access.NewResolver(testPortal(t)), nil, nil)

	scope, err := svc.Authorize("admin", "initech")
	require.NoError(t, err)
	require.True(t, scope.IsAll())

	_, err = svc.Authorize("dana", "globex")
	require.ErrorIs(t, err, access.ErrAccessDenied)

	_, err = svc.Authorize("dana", "nowhere")
	require.ErrorIs(t, err, access.ErrUnknownCompany)

	scope, err = svc.Authorize("lee", "globex")
	require.NoError(t, err)
	require.Equal(t, access.SelfOnly("lee"), scope)
}

func TestService_NarrowScope(t *testing.T) {
	svc := access.NewService(testPortal(t), access.NewResolver(testPortal(t)), nil, nil)

	adminScope := access.AllRecords()
	narrowed, err := svc.NarrowScope("admin", "acme", adminScope, "", "")
	require.NoError(t, err)
	require.Equal(t, access.TeamRoster([]string{"dana", "fox", "lee", "walter"}), narrowed)

	narrowed, err = svc.NarrowScope("admin", "acme", adminScope, "blue", "")
	require.NoError(t, err)
	require.Equal(t, access.TeamRoster([]string{"lee", "walter"}), narrowed)

	narrowed, err = svc.NarrowScope("admin", "acme", adminScope, "blue", "Lee")
	require.NoError(t, err)
	require.Equal(t, access.TeamRoster([]string{"lee"}), narrowed)

	_, err = svc.NarrowScope("admin", "acme", adminScope, "blue", "dana")
	require.ErrorIs(t, err, access.ErrAccessDenied)

	narrowed, err = svc.NarrowScope("admin", "initech", adminScope, "", "")
	require.NoError(t, err)
	require.True(t, narrowed.IsAll())

	leadScope := access.TeamRoster([]string{"dana", "fox"})
	_, err = svc.NarrowScope("dana", "acme", leadScope, "blue", "")
	require.ErrorIs(t, err, access.ErrAccessDenied)
	narrowed, err = svc.NarrowScope("dana", "acme", leadScope, "", "fox")
	require.NoError(t, err)
	require.Equal(t, access.TeamRoster([]string{"fox"}), narrowed)
}
