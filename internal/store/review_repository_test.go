package store

func (s *RepositorySuite) TestReviewRepositoryUpsertReplacesExistingRating() {
	dev, err := NewDevUserRepository(s.pool).Create(s.ctx, "review_dev", []byte("s"), []byte("h"))
	s.Require().NoError(err)
	player, err := NewPlayerUserRepository(s.pool).Create(s.ctx, "review_player", []byte("s"), []byte("h"))
	s.Require().NoError(err)
	g, err := NewGameRepository(s.pool).Create(s.ctx, "review-game", "Name", "desc", dev.ID)
	s.Require().NoError(err)

	repo := NewReviewRepository(s.pool)
	s.Require().NoError(repo.Upsert(s.ctx, g.ID, player.ID, 3, "ok"))
	s.Require().NoError(repo.Upsert(s.ctx, g.ID, player.ID, 5, "great"))

	reviews, err := repo.ListForGame(s.ctx, g.ID)
	s.Require().NoError(err)
	s.Require().Len(reviews, 1, "expected exactly one review row after upsert")
	s.Equal(5, reviews[0].Rating)
	s.Equal("great", reviews[0].Comment)
}
