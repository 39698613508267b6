package secret

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	key := ConnectionKey("42")
	assert.Equal(t, "db:42", key)

	v, err := s.Get(key)
	require.NoError(t, err)
	assert.Empty(t, v)

	pw := []byte("hunter2")
	require.NoError(t, s.Set(key, pw))
	pw[0] = 'X'
	v, err = s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", string(v))

	require.NoError(t, s.Delete(key))
	v, err = s.Get(key)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestKeychainStore_Commands(t *testing.T) {
	var calls []string
	k := &KeychainStore{service: "datalink-test", run: func(name string, args ...string) ([]byte, error) {
		calls = append(calls, name+" "+strings.Join(args, " "))
		if args[0] == "find-generic-password" {
			return []byte("s3cret\n"), nil
		}
		return nil, nil
	}}

	require.NoError(t, k.Set("db:1", []byte("s3cret")))
	v, err := k.Get("db:1")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", string(v))
	require.NoError(t, k.Delete("db:1"))

	require.Len(t, calls, 3)
	assert.Contains(t, calls[0], "add-generic-password -a db:1 -s datalink-test -w s3cret -U")
	assert.Contains(t, calls[1], "find-generic-password -a db:1 -s datalink-test -w")
}

func TestKeychainStore_Failures(t *testing.T) {
	k := &KeychainStore{service: "x", run: func(string, ...string) ([]byte, error) {
		return []byte("denied"), errors.New("exit status 1")
	}}
	assert.ErrorContains(t, k.Set("a", []byte("b")), "denied")
	_, err := k.Get("a")
	assert.Error(t, err)
	assert.Error(t, k.Delete("a"))
}
