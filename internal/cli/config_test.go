package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) TestDefaultsFromEnvironment() {
	s.T().Setenv("MATCHCTL_SERVER", "http://chess.example:9000")
	s.T().Setenv("MATCHCTL_TOKEN", "sess_env")
	s.T().Setenv("MATCHCTL_TOKEN_FILE", "/tmp/matchctl-token")

	c := DefaultConfig()
	s.Equal("http://chess.example:9000", c.ServerURL)
	s.Equal("sess_env", c.Token)
	s.Equal("/tmp/matchctl-token", c.TokenFile)
	s.Equal("text", c.Output)
	s.Equal(defaultTimeout, c.Timeout)
}

func (s *ConfigSuite) TestTimeoutFromEnvironment() {
	s.T().Setenv("MATCHCTL_TIMEOUT", "3s")
	s.Equal(3*time.Second, DefaultConfig().Timeout)

	s.T().Setenv("MATCHCTL_TIMEOUT", "soon")
	s.Equal(defaultTimeout, DefaultConfig().Timeout)
}

func (s *ConfigSuite) TestValidate() {
	valid := Config{ServerURL: "http://localhost:8080", Output: "json", Timeout: time.Second}
	s.NoError(valid.Validate())

	badURL := valid
	badURL.ServerURL = "localhost:8080"
	s.ErrorContains(badURL.Validate(), "invalid server URL")

	badOutput := valid
	badOutput.Output = "yaml"
	s.ErrorContains(badOutput.Validate(), "invalid output format")

	badTimeout := valid
	badTimeout.Timeout = 0
	s.ErrorContains(badTimeout.Validate(), "timeout must be positive")
}

func (s *ConfigSuite) TestTokenFileRoundTrip() {
	c := &Config{TokenFile: filepath.Join(s.T().TempDir(), "nested", "token")}

	s.Require().NoError(c.LoadToken())
	s.Empty(c.Token)

	s.Require().NoError(c.SaveToken("sess_abc"))
	info, err := os.Stat(c.TokenFile)
	s.Require().NoError(err)
	s.Equal(os.FileMode(0o600), info.Mode().Perm())

	loaded := &Config{TokenFile: c.TokenFile}
	s.Require().NoError(loaded.LoadToken())
	s.Equal("sess_abc", loaded.Token)

	s.Require().NoError(loaded.ClearToken())
	s.Empty(loaded.Token)
	_, err = os.Stat(c.TokenFile)
	s.True(os.IsNotExist(err))
	s.NoError(loaded.ClearToken())
}

func (s *ConfigSuite) TestExplicitTokenWins() {
	path := filepath.Join(s.T().TempDir(), "token")
	s.Require().NoError(os.WriteFile(path, []byte("sess_file\n"), 0o600))

	c := &Config{Token: "sess_flag", TokenFile: path}
	s.Require().NoError(c.LoadToken())
	s.Equal("sess_flag", c.Token)
}

func (s *ConfigSuite) TestWebSocketURL() {
	cases := map[string]string{
		"http://localhost:8080":  "ws://localhost:8080/ws",
		"https://chess.example/": "wss://chess.example/ws",
		"http://host/prefix":     "ws://host/prefix/ws",
	}
	for in, want := range cases {
		got, err := NewClient(in, "", time.Second).WebSocketURL()
		s.Require().NoError(err)
		s.Equal(want, got, in)
	}
}
