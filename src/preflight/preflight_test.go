package preflight

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckMissingCredential(t *testing.T) {
	t.Setenv("IROH_RELEASE_TEST_KEY", "")

	err := Check{Env: []string{"IROH_RELEASE_TEST_KEY"}}.Run()
	require.Error(t, err)
	require.Contains(t, err.Error(), "IROH_RELEASE_TEST_KEY")
}

func TestCheckPassesWithCredentialsAndHosts(t *testing.T) {
	t.Setenv("IROH_RELEASE_TEST_KEY", "set")

	var resolved []string
	check := Check{
		Env:   []string{"IROH_RELEASE_TEST_KEY"},
		Hosts: []string{"s3.amazonaws.com", "index.docker.io"},
		Lookup: func(host string) error {
			resolved = append(resolved, host)
			return nil
		},
	}
	require.NoError(t, check.Run())
	require.Equal(t, []string{"s3.amazonaws.com", "index.docker.io"}, resolved)
}

func TestCheckUnresolvableHost(t *testing.T) {
	check := Check{
		Hosts:  []string{"store.invalid"},
		Lookup: func(string) error { return errors.New("NXDOMAIN") },
	}
	err := check.Run()
	require.Error(t, err)
	require.Contains(t, err.Error(), "store.invalid")
}

func TestCheckCredentialsBeforeResolution(t *testing.T) {
	t.Setenv("IROH_RELEASE_TEST_KEY", "")

	check := Check{
		Env:   []string{"IROH_RELEASE_TEST_KEY"},
		Hosts: []string{"s3.amazonaws.com"},
		Lookup: func(string) error {
			t.Fatal("lookup must not run when a credential is missing")
			return nil
		},
	}
	require.Error(t, check.Run())
}
