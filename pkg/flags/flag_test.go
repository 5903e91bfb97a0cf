package flags

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetFlagsFromEnv(t *testing.T) {
	fs := flag.NewFlagSet("testing", flag.ExitOnError)
	fs.String("a", "", "")
	fs.String("b", "", "")
	fs.String("c", "", "")
	require.NoError(t, fs.Parse([]string{}))

	t.Setenv("UDISCOVERY_A", "foo")
	t.Setenv("UDISCOVERY_B", "bar")
	require.NoError(t, fs.Set("b", "baz"))

	require.NoError(t, SetFlagsFromEnv("UDISCOVERY", fs))
	assert.Equal(t, "foo", fs.Lookup("a").Value.String())
	assert.Equal(t, "baz", fs.Lookup("b").Value.String(), "explicit flag wins")
	assert.Equal(t, "", fs.Lookup("c").Value.String())
}

func TestSetFlagsFromEnvBadValue(t *testing.T) {
	fs := flag.NewFlagSet("testing", flag.ExitOnError)
	fs.Int("x-foo", 0, "")
	t.Setenv("UDISCOVERY_X_FOO", "not-a-number")
	assert.Error(t, SetFlagsFromEnv("UDISCOVERY", fs))
}

func TestSelectiveStringValue(t *testing.T) {
	ss := NewSelectiveStringValue("bolt", "badger", "file", "memory")
	assert.Equal(t, "bolt", ss.String())
	require.NoError(t, ss.Set("file"))
	assert.Equal(t, "file", ss.String())
	assert.Error(t, ss.Set("etcd"))
	assert.Equal(t, []string{"badger", "bolt", "file", "memory"}, ss.Valids())
}

func TestStringsValue(t *testing.T) {
	fs := flag.NewFlagSet("testing", flag.ExitOnError)
	fs.Var(NewStringsValue("default"), "log-outputs", "")
	require.NoError(t, fs.Parse([]string{"--log-outputs=stderr,/var/log/udiscovery.log"}))
	assert.Equal(t, []string{"stderr", "/var/log/udiscovery.log"}, StringsFromFlag(fs, "log-outputs"))
}

func TestUniqueURLs(t *testing.T) {
	us := NewUniqueURLsWithExceptions("http://127.0.0.1:2379,unix:///run/ud.sock,http://127.0.0.1:2379")
	assert.Len(t, us.uss, 2)
	assert.Equal(t, "http://127.0.0.1:2379,unix:///run/ud.sock", us.String())

	for _, bad := range []string{"https://127.0.0.1:2379", "http://127.0.0.1:2379/path", "unix://", "ftp://x"} {
		assert.Error(t, (&UniqueURLs{}).Set(bad), bad)
	}

	ex := NewUniqueURLsWithExceptions("", "*")
	require.NoError(t, ex.Set("*"))
	assert.Equal(t, "*", ex.String())
}
