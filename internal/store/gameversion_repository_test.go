package store

import (
	"errors"

	"github.com/brightforge/gamevault/internal/model"
)

func (s *RepositorySuite) TestGameVersionRepositoryCreateRejectsDuplicateVersion() {
	dev, err := NewDevUserRepository(s.pool).Create(s.ctx, "gv_owner", []byte("s"), []byte("h"))
	s.Require().NoError(err)
	g, err := NewGameRepository(s.pool).Create(s.ctx, "gv-dup-game", "Name", "desc", dev.ID)
	s.Require().NoError(err)

	repo := NewGameVersionRepository(s.pool)
	params := CreateParams{
		GameRef: g.ID, Version: "1.0.0", FileName: "game.zip", SizeBytes: 1024,
		SHA256: "deadbeef", ZipPath: "/tmp/game.zip", ExtractedPath: "/tmp/game",
		ManifestJSON: "{}", ClientType: model.ClientTypeCLI, MinPlayers: 1, MaxPlayers: 2,
	}
	_, err = repo.Create(s.ctx, params)
	s.Require().NoError(err)

	_, err = repo.Create(s.ctx, params)
	s.Require().True(errors.Is(err, ErrVersionTaken), "want ErrVersionTaken, got %v", err)
}

func (s *RepositorySuite) TestGameVersionRepositoryAllowsSameVersionForDifferentGames() {
	dev, err := NewDevUserRepository(s.pool).Create(s.ctx, "gv_owner_2", []byte("s"), []byte("h"))
	s.Require().NoError(err)
	gameRepo := NewGameRepository(s.pool)
	g1, err := gameRepo.Create(s.ctx, "gv-game-a", "A", "desc", dev.ID)
	s.Require().NoError(err)
	g2, err := gameRepo.Create(s.ctx, "gv-game-b", "B", "desc", dev.ID)
	s.Require().NoError(err)

	repo := NewGameVersionRepository(s.pool)
	base := CreateParams{
		Version: "1.0.0", FileName: "game.zip", SizeBytes: 1024, SHA256: "deadbeef",
		ZipPath: "/tmp/game.zip", ExtractedPath: "/tmp/game", ManifestJSON: "{}",
		ClientType: model.ClientTypeCLI, MinPlayers: 1, MaxPlayers: 2,
	}
	p1, p2 := base, base
	p1.GameRef, p2.GameRef = g1.ID, g2.ID

	_, err = repo.Create(s.ctx, p1)
	s.Require().NoError(err)
	_, err = repo.Create(s.ctx, p2)
	s.Require().NoError(err, "same version for a different game should be allowed")
}
