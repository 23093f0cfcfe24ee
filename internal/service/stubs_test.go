package service

import (
	"context"
	"time"

	"quill/internal/models"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn        func(context.Context, *models.Post) error
	getByIDFn       func(context.Context, uint) (*models.Post, error)
	updateFn        func(context.Context, *models.Post) error
	countAllFn      func(context.Context) (int64, error)
	listAllFn       func(context.Context, int, int) ([]*models.Post, error)
	countByGroupFn  func(context.Context, uint) (int64, error)
	listByGroupFn   func(context.Context, uint, int, int) ([]*models.Post, error)
	countByAuthorFn func(context.Context, uint) (int64, error)
	listByAuthorFn  func(context.Context, uint, int, int) ([]*models.Post, error)
	countFeedFn     func(context.Context, uint) (int64, error)
	listFeedFn      func(context.Context, uint, int, int) ([]*models.Post, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) CountAll(ctx context.Context) (int64, error) { return s.countAllFn(ctx) }
func (s *postRepoStub) ListAll(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return s.listAllFn(ctx, limit, offset)
}
func (s *postRepoStub) CountByGroup(ctx context.Context, groupID uint) (int64, error) {
	return s.countByGroupFn(ctx, groupID)
}
func (s *postRepoStub) ListByGroup(ctx context.Context, groupID uint, limit, offset int) ([]*models.Post, error) {
	return s.listByGroupFn(ctx, groupID, limit, offset)
}
func (s *postRepoStub) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	return s.countByAuthorFn(ctx, authorID)
}
func (s *postRepoStub) ListByAuthor(ctx context.Context, authorID uint, limit, offset int) ([]*models.Post, error) {
	return s.listByAuthorFn(ctx, authorID, limit, offset)
}
func (s *postRepoStub) CountFeed(ctx context.Context, followerID uint) (int64, error) {
	return s.countFeedFn(ctx, followerID)
}
func (s *postRepoStub) ListFeed(ctx context.Context, followerID uint, limit, offset int) ([]*models.Post, error) {
	return s.listFeedFn(ctx, followerID, limit, offset)
}

func noopPostRepo() *postRepoStub {
	empty := func(_ context.Context, _ uint, _, _ int) ([]*models.Post, error) { return nil, nil }
	zero := func(_ context.Context, _ uint) (int64, error) { return 0, nil }
	return &postRepoStub{
		createFn:        func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn:       func(_ context.Context, id uint) (*models.Post, error) { return nil, models.NewNotFoundError("Post", id) },
		updateFn:        func(_ context.Context, _ *models.Post) error { return nil },
		countAllFn:      func(_ context.Context) (int64, error) { return 0, nil },
		listAllFn:       func(_ context.Context, _, _ int) ([]*models.Post, error) { return nil, nil },
		countByGroupFn:  zero,
		listByGroupFn:   empty,
		countByAuthorFn: zero,
		listByAuthorFn:  empty,
		countFeedFn:     zero,
		listFeedFn:      empty,
	}
}

// groupRepoStub is a stub for repository.GroupRepository.
type groupRepoStub struct {
	groups   map[uint]*models.Group
	upserted []*models.Group
}

func newGroupRepoStub(groups ...*models.Group) *groupRepoStub {
	s := &groupRepoStub{groups: map[uint]*models.Group{}}
	for _, g := range groups {
		s.groups[g.ID] = g
	}
	return s
}

func (s *groupRepoStub) Create(_ context.Context, group *models.Group) error {
	for _, g := range s.groups {
		if g.Slug == group.Slug {
			return models.NewConflictError("exists")
		}
	}
	group.ID = uint(len(s.groups) + 1)
	s.groups[group.ID] = group
	return nil
}
func (s *groupRepoStub) Upsert(_ context.Context, group *models.Group) error {
	s.upserted = append(s.upserted, group)
	return nil
}
func (s *groupRepoStub) GetByID(_ context.Context, id uint) (*models.Group, error) {
	if g, ok := s.groups[id]; ok {
		return g, nil
	}
	return nil, models.NewNotFoundError("Group", id)
}
func (s *groupRepoStub) GetBySlug(_ context.Context, slug string) (*models.Group, error) {
	for _, g := range s.groups {
		if g.Slug == slug {
			return g, nil
		}
	}
	return nil, models.NewNotFoundError("Group", slug)
}
func (s *groupRepoStub) List(_ context.Context) ([]*models.Group, error) {
	out := make([]*models.Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	return out, nil
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	created []*models.Comment
}

func (s *commentRepoStub) Create(_ context.Context, c *models.Comment) error {
	c.ID = uint(len(s.created) + 1)
	s.created = append(s.created, c)
	return nil
}
func (s *commentRepoStub) CountByPost(_ context.Context, postID uint) (int64, error) {
	var n int64
	for _, c := range s.created {
		if c.PostID == postID {
			n++
		}
	}
	return n, nil
}
func (s *commentRepoStub) ListByPost(_ context.Context, postID uint, limit, offset int) ([]*models.Comment, error) {
	var out []*models.Comment
	for i := len(s.created) - 1; i >= 0; i-- {
		if s.created[i].PostID == postID {
			out = append(out, s.created[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// followRepoStub is an in-memory repository.FollowRepository.
type followRepoStub struct {
	edges map[[2]uint]bool
}

func newFollowRepoStub() *followRepoStub {
	return &followRepoStub{edges: map[[2]uint]bool{}}
}

func (s *followRepoStub) Follow(_ context.Context, userID, authorID uint) (bool, error) {
	key := [2]uint{userID, authorID}
	if s.edges[key] {
		return false, nil
	}
	s.edges[key] = true
	return true, nil
}
func (s *followRepoStub) Unfollow(_ context.Context, userID, authorID uint) (bool, error) {
	key := [2]uint{userID, authorID}
	if !s.edges[key] {
		return false, nil
	}
	delete(s.edges, key)
	return true, nil
}
func (s *followRepoStub) IsFollowing(_ context.Context, userID, authorID uint) (bool, error) {
	return s.edges[[2]uint{userID, authorID}], nil
}
func (s *followRepoStub) CountFollowers(_ context.Context, authorID uint) (int64, error) {
	var n int64
	for k := range s.edges {
		if k[1] == authorID {
			n++
		}
	}
	return n, nil
}
func (s *followRepoStub) CountFollowing(_ context.Context, userID uint) (int64, error) {
	var n int64
	for k := range s.edges {
		if k[0] == userID {
			n++
		}
	}
	return n, nil
}

// userRepoStub is an in-memory repository.UserRepository.
type userRepoStub struct {
	users     map[uint]*models.User
	lastLogin map[uint]time.Time
}

func newUserRepoStub(users ...*models.User) *userRepoStub {
	s := &userRepoStub{users: map[uint]*models.User{}, lastLogin: map[uint]time.Time{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *userRepoStub) Create(_ context.Context, user *models.User) error {
	user.ID = uint(len(s.users) + 1)
	s.users[user.ID] = user
	return nil
}
func (s *userRepoStub) GetByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, models.NewNotFoundError("User", id)
}
func (s *userRepoStub) GetByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, models.NewNotFoundError("User", username)
}
func (s *userRepoStub) UsernameTaken(_ context.Context, username string) (bool, error) {
	for _, u := range s.users {
		if equalFold(u.Username, username) {
			return true, nil
		}
	}
	return false, nil
}
func (s *userRepoStub) SetPassword(_ context.Context, userID uint, hash string) error {
	u, ok := s.users[userID]
	if !ok {
		return models.NewNotFoundError("User", userID)
	}
	u.Password = hash
	return nil
}
func (s *userRepoStub) UpdateLastLogin(_ context.Context, userID uint, at time.Time) error {
	s.lastLogin[userID] = at
	return nil
}
func (s *userRepoStub) SetStaff(_ context.Context, username string, staff bool) error {
	for _, u := range s.users {
		if u.Username == username {
			u.IsStaff = staff
			return nil
		}
	}
	return models.NewNotFoundError("User", username)
}
func (s *userRepoStub) List(_ context.Context, _, _ int) ([]*models.User, error) {
	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}
func (s *userRepoStub) Count(_ context.Context) (int64, error) { return int64(len(s.users)), nil }

// imageStoreStub records saved and removed uploads.
type imageStoreStub struct {
	saved   []ImageUpload
	removed []*StoredImage
	err     error
}

func (s *imageStoreStub) Check(_ []byte) error { return s.err }
func (s *imageStoreStub) Save(_ context.Context, in ImageUpload) (*StoredImage, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.saved = append(s.saved, in)
	return &StoredImage{Path: PostImageDir + "/" + in.Filename}, nil
}
func (s *imageStoreStub) Remove(_ context.Context, stored *StoredImage) error {
	s.removed = append(s.removed, stored)
	return nil
}
