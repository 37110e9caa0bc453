package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"videotube/internal/domain"
)

// MemoryStore implementa los repositorios de entidades, aristas y usuarios en memoria.
// Cada operación toma el mutex completo, así FlipEdge es atómico como en Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	entities map[domain.EntityType]map[string]domain.Entity
	edges    map[domain.EdgeKey]domain.Edge
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entities: make(map[domain.EntityType]map[string]domain.Entity),
		edges:    make(map[domain.EdgeKey]domain.Edge),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Put guarda o reemplaza una entidad.
func (s *MemoryStore) Put(entities ...domain.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entities {
		bucket, ok := s.entities[e.EntityType()]
		if !ok {
			bucket = make(map[string]domain.Entity)
			s.entities[e.EntityType()] = bucket
		}
		bucket[e.EntityID()] = e
	}
}

func (s *MemoryStore) FindByID(_ context.Context, entityType domain.EntityType, id string) (domain.Entity, error) {
	if !entityType.Valid() {
		return nil, ErrUnknownEntity
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[entityType][id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

func (s *MemoryStore) FindByIDs(_ context.Context, entityType domain.EntityType, ids []string) ([]domain.Entity, error) {
	if !entityType.Valid() {
		return nil, ErrUnknownEntity
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.entities[entityType][id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) ExistsByID(_ context.Context, entityType domain.EntityType, id string) (bool, error) {
	if !entityType.Valid() {
		return false, ErrUnknownEntity
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entities[entityType][id]
	return ok, nil
}

func (s *MemoryStore) FindPage(_ context.Context, entityType domain.EntityType, filter domain.ListFilter, order domain.Sort, skip, limit int) ([]domain.Entity, int64, error) {
	if !entityType.Valid() {
		return nil, 0, ErrUnknownEntity
	}
	if !SortKeyAllowed(entityType, order.Key) {
		return nil, 0, ErrUnknownSortKey
	}
	s.mu.RLock()
	matched := make([]domain.Entity, 0, len(s.entities[entityType]))
	for _, e := range s.entities[entityType] {
		if matchesFilter(e, filter) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	desc := order.Dir == domain.SortDesc
	sort.Slice(matched, func(i, j int) bool {
		c := compareValues(sortValue(matched[i], order.Key), sortValue(matched[j], order.Key))
		if c == 0 {
			c = strings.Compare(matched[i].EntityID(), matched[j].EntityID())
		}
		if desc {
			return c > 0
		}
		return c < 0
	})

	total := int64(len(matched))
	if skip >= len(matched) {
		return []domain.Entity{}, total, nil
	}
	end := skip + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[skip:end], total, nil
}

func (s *MemoryStore) VideoTotals(_ context.Context, ownerID string, publishedOnly bool) (VideoTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var totals VideoTotals
	for _, e := range s.entities[domain.EntityVideo] {
		v := e.(domain.Video)
		if v.OwnerID == ownerID && (v.Published || !publishedOnly) {
			totals.Count++
			totals.Views += v.Views
		}
	}
	return totals, nil
}

func (s *MemoryStore) VideoIDsByOwner(_ context.Context, ownerID string, publishedOnly bool) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, e := range s.entities[domain.EntityVideo] {
		v := e.(domain.Video)
		if v.OwnerID == ownerID && (v.Published || !publishedOnly) {
			ids = append(ids, e.EntityID())
		}
	}
	return ids, nil
}

func (s *MemoryStore) FindEdge(_ context.Context, key domain.EdgeKey) (domain.Edge, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.edges[key]
	return e, ok, nil
}

func (s *MemoryStore) FlipEdge(_ context.Context, key domain.EdgeKey) (domain.FlipResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.edges[key]; ok {
		delete(s.edges, key)
		return domain.FlipDeleted, nil
	}
	s.edges[key] = domain.Edge{EdgeKey: key, CreatedAt: s.now()}
	return domain.FlipCreated, nil
}

func (s *MemoryStore) CountEdges(_ context.Context, filter domain.EdgeFilter) (int64, error) {
	if filter.TargetIDs != nil && len(filter.TargetIDs) == 0 {
		return 0, nil
	}
	var targets map[string]struct{}
	if len(filter.TargetIDs) > 0 {
		targets = make(map[string]struct{}, len(filter.TargetIDs))
		for _, id := range filter.TargetIDs {
			targets[id] = struct{}{}
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for k := range s.edges {
		if filter.SubjectID != "" && k.SubjectID != filter.SubjectID {
			continue
		}
		if filter.Kind != "" && k.Kind != filter.Kind {
			continue
		}
		if filter.TargetType != "" && k.TargetType != filter.TargetType {
			continue
		}
		if filter.TargetID != "" && k.TargetID != filter.TargetID {
			continue
		}
		if targets != nil {
			if _, ok := targets[k.TargetID]; !ok {
				continue
			}
		}
		n++
	}
	return n, nil
}

func (s *MemoryStore) ListTargetIDs(_ context.Context, subjectID string, kind domain.EdgeKind, targetType domain.TargetType, skip, limit int) ([]string, int64, error) {
	s.mu.RLock()
	var matched []domain.Edge
	for k, e := range s.edges {
		if k.SubjectID == subjectID && k.Kind == kind && k.TargetType == targetType {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].TargetID > matched[j].TargetID
	})
	total := int64(len(matched))
	ids := []string{}
	for i := skip; i < len(matched) && len(ids) < limit; i++ {
		ids = append(ids, matched[i].TargetID)
	}
	return ids, total, nil
}

func (s *MemoryStore) Create(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entities[domain.EntityUser] {
		u := e.(domain.User)
		if u.ID == user.ID || u.Username == user.Username || (user.Email != "" && u.Email == user.Email) {
			return domain.ErrConflict.Withf("username or email already registered")
		}
	}
	bucket, ok := s.entities[domain.EntityUser]
	if !ok {
		bucket = make(map[string]domain.Entity)
		s.entities[domain.EntityUser] = bucket
	}
	bucket[user.ID] = user
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[domain.EntityUser][id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return e.(domain.User), nil
}

func (s *MemoryStore) GetByLogin(_ context.Context, login string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entities[domain.EntityUser] {
		u := e.(domain.User)
		if u.Username == login || u.Email == login {
			return u, nil
		}
	}
	return domain.User{}, ErrNotFound
}

func matchesFilter(e domain.Entity, f domain.ListFilter) bool {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	contains := func(s string) bool { return q == "" || strings.Contains(strings.ToLower(s), q) }
	switch v := e.(type) {
	case domain.User:
		return contains(v.Username)
	case domain.Video:
		if f.OwnerID != "" && v.OwnerID != f.OwnerID {
			return false
		}
		if f.PublishedOnly && !v.Published {
			return false
		}
		return contains(v.Title)
	case domain.Comment:
		if f.OwnerID != "" && v.OwnerID != f.OwnerID {
			return false
		}
		if f.VideoID != "" && v.VideoID != f.VideoID {
			return false
		}
		return contains(v.Content)
	case domain.Tweet:
		if f.OwnerID != "" && v.OwnerID != f.OwnerID {
			return false
		}
		return contains(v.Content)
	case domain.Playlist:
		if f.OwnerID != "" && v.OwnerID != f.OwnerID {
			return false
		}
		return contains(v.Name)
	}
	return false
}

func sortValue(e domain.Entity, key string) any {
	switch v := e.(type) {
	case domain.User:
		switch key {
		case "username":
			return v.Username
		}
		return v.CreatedAt
	case domain.Video:
		switch key {
		case "views":
			return v.Views
		case "duration":
			return v.Duration
		case "title":
			return v.Title
		}
		return v.CreatedAt
	case domain.Comment:
		return v.CreatedAt
	case domain.Tweet:
		return v.CreatedAt
	case domain.Playlist:
		if key == "name" {
			return v.Name
		}
		return v.CreatedAt
	}
	return nil
}

func compareValues(a, b any) int {
	switch x := a.(type) {
	case string:
		return strings.Compare(x, b.(string))
	case int64:
		y := b.(int64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	case float64:
		y := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	case time.Time:
		return x.Compare(b.(time.Time))
	}
	return 0
}

var (
	_ EntityRepository = (*MemoryStore)(nil)
	_ EdgeRepository   = (*MemoryStore)(nil)
	_ UserRepository   = (*MemoryStore)(nil)
)
