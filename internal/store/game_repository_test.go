package store

import "errors"

func (s *RepositorySuite) TestGameRepositoryCreateRejectsDuplicateGameID() {
	dev, err := NewDevUserRepository(s.pool).Create(s.ctx, "dup_game_owner", []byte("s"), []byte("h"))
	s.Require().NoError(err)

	repo := NewGameRepository(s.pool)
	_, err = repo.Create(s.ctx, "dup-game-id", "First", "desc", dev.ID)
	s.Require().NoError(err)

	_, err = repo.Create(s.ctx, "dup-game-id", "Second", "desc2", dev.ID)
	s.Require().True(errors.Is(err, ErrGameIDTaken), "want ErrGameIDTaken, got %v", err)
}

func (s *RepositorySuite) TestGameRepositorySetDelistedRequiresOwnership() {
	devRepo := NewDevUserRepository(s.pool)
	owner, err := devRepo.Create(s.ctx, "delist_owner", []byte("s"), []byte("h"))
	s.Require().NoError(err)
	other, err := devRepo.Create(s.ctx, "delist_other", []byte("s"), []byte("h"))
	s.Require().NoError(err)

	gameRepo := NewGameRepository(s.pool)
	g, err := gameRepo.Create(s.ctx, "owned-delist-game", "Name", "desc", owner.ID)
	s.Require().NoError(err)

	owned, err := gameRepo.SetDelisted(s.ctx, g.GameID, other.ID, true)
	s.Require().NoError(err)
	s.False(owned, "SetDelisted by non-owner should report owned=false")

	got, err := gameRepo.GetByGameID(s.ctx, g.GameID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.False(got.Delisted, "non-owner call must not delist the game")

	owned, err = gameRepo.SetDelisted(s.ctx, g.GameID, owner.ID, true)
	s.Require().NoError(err)
	s.True(owned)

	got, err = gameRepo.GetByGameID(s.ctx, g.GameID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.True(got.Delisted)
}
