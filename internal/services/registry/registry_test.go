package registry

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/chessmatch/internal/model"
)

type stubConn struct {
	id ConnID
}

func (c *stubConn) ID() ConnID { return c.id }
func (c *stubConn) Send(msg model.Message) error { return nil }

type RegistrySuite struct {
	suite.Suite
	registry *Registry
	alice    model.Identity
	bob      model.Identity
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.registry = New()
	s.alice = model.Identity{Username: "alice", Rating: 1200}
	s.bob = model.Identity{Username: "bob", Rating: 1250}
}

func (s *RegistrySuite) TestAddRegistersBareConnection() {
	s.registry.Add(&stubConn{id: "c1"})

	c, ok := s.registry.Find("c1")
	s.Require().True(ok)
	s.Nil(c.Identity)
	s.Empty(s.registry.Identities())
	s.Equal(1, s.registry.Len())
}

func (s *RegistrySuite) TestAttachUnknownConnectionInserts() {
	s.registry.Attach(&stubConn{id: "c1"}, s.alice)

	c, ok := s.registry.FindByUsername("alice")
	s.Require().True(ok)
	s.Equal(ConnID("c1"), c.Conn.ID())
	s.Equal([]model.Identity{s.alice}, s.registry.Identities())
}

func (s *RegistrySuite) TestAttachIsIdempotent() {
	conn := &stubConn{id: "c1"}
	s.registry.Attach(conn, s.alice)
	s.registry.Attach(conn, s.alice)

	s.Equal(1, s.registry.Len())
	s.Len(s.registry.Identities(), 1)
}

func (s *RegistrySuite) TestAttachReplacesIdentityOnSameConnection() {
	conn := &stubConn{id: "c1"}
	s.registry.Attach(conn, s.alice)
	s.registry.Attach(conn, s.bob)

	_, ok := s.registry.FindByUsername("alice")
	s.False(ok)
	c, ok := s.registry.FindByUsername("bob")
	s.Require().True(ok)
	s.Equal(ConnID("c1"), c.Conn.ID())
}

func (s *RegistrySuite) TestRejoinOnNewConnectionDemotesOldOne() {
	s.registry.Attach(&stubConn{id: "c1"}, s.alice)
	s.registry.Attach(&stubConn{id: "c2"}, s.alice)

	c, ok := s.registry.FindByUsername("alice")
	s.Require().True(ok)
	s.Equal(ConnID("c2"), c.Conn.ID())

	old, ok := s.registry.Find("c1")
	s.Require().True(ok)
	s.Nil(old.Identity)
	s.Len(s.registry.Identities(), 1)
}

func (s *RegistrySuite) TestDetachReturnsIdentity() {
	s.registry.Attach(&stubConn{id: "c1"}, s.alice)

	identity, ok := s.registry.Detach("c1")
	s.Require().True(ok)
	s.Require().NotNil(identity)
	s.Equal(s.alice, *identity)

	_, ok = s.registry.FindByUsername("alice")
	s.False(ok)
}

func (s *RegistrySuite) TestDetachDemotedConnectionKeepsNewOne() {
	s.registry.Attach(&stubConn{id: "c1"}, s.alice)
	s.registry.Attach(&stubConn{id: "c2"}, s.alice)

	identity, ok := s.registry.Detach("c1")
	s.True(ok)
	s.Nil(identity)

	c, ok := s.registry.FindByUsername("alice")
	s.Require().True(ok)
	s.Equal(ConnID("c2"), c.Conn.ID())
}

func (s *RegistrySuite) TestDetachUnknownIsNotAnError() {
	identity, ok := s.registry.Detach("missing")
	s.False(ok)
	s.Nil(identity)
}

func (s *RegistrySuite) TestIdentitiesInRegistrationOrder() {
	s.registry.Attach(&stubConn{id: "c1"}, s.bob)
	s.registry.Add(&stubConn{id: "c2"})
	s.registry.Attach(&stubConn{id: "c3"}, s.alice)

	s.Equal([]model.Identity{s.bob, s.alice}, s.registry.Identities())
}
