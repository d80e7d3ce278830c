package store

import "errors"

func (s *RepositorySuite) TestDevUserRepositoryCreateRejectsDuplicateUsername() {
	repo := NewDevUserRepository(s.pool)

	_, err := repo.Create(s.ctx, "dup_dev_user", []byte("salt"), []byte("hash"))
	s.Require().NoError(err)

	_, err = repo.Create(s.ctx, "dup_dev_user", []byte("salt2"), []byte("hash2"))
	s.Require().True(errors.Is(err, ErrUsernameTaken), "want ErrUsernameTaken, got %v", err)
}

func (s *RepositorySuite) TestDevUserRepositoryGetByUsernameAndID() {
	repo := NewDevUserRepository(s.pool)

	created, err := repo.Create(s.ctx, "lookup_dev_user", []byte("s"), []byte("h"))
	s.Require().NoError(err)

	byName, err := repo.GetByUsername(s.ctx, "lookup_dev_user")
	s.Require().NoError(err)
	s.Require().NotNil(byName)
	s.Equal(created.ID, byName.ID)

	byID, err := repo.GetByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Require().NotNil(byID)
	s.Equal("lookup_dev_user", byID.Username)

	missing, err := repo.GetByUsername(s.ctx, "no_such_dev_user")
	s.Require().NoError(err)
	s.Nil(missing)
}
