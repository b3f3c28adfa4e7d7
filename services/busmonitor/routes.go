package busmonitor

import (
	"context"
	"fmt"
	"strconv"

	"buswatch-backend/lib/timezone"
)

// RouteStore is the route management surface. the scan path only ever
// calls List, routes are created and deleted from the CLI.
type RouteStore struct {
	store Store
}

func NewRouteStore(store Store) RouteStore {
	return RouteStore{store: store}
}

// ids are creation timestamps at nanosecond resolution, unique in
// practice and sortable by creation order for tie-breaking
func newRouteID() string {
	return strconv.FormatInt(timezone.Now().UnixNano(), 10)
}

func (r RouteStore) Create(ctx context.Context, name, url, email string) (Route, error) {
	if name == "" {
		return Route{}, fmt.Errorf("route name must not be empty")
	}
	if url == "" {
		return Route{}, fmt.Errorf("route url must not be empty")
	}

	route := Route{
		ID:    newRouteID(),
		Name:  name,
		URL:   url,
		Email: email,
	}

	routes := append(r.store.Routes(ctx), route)
	err := r.store.SaveRoutes(ctx, routes)
	if err != nil {
		return Route{}, err
	}
	return route, nil
}

func (r RouteStore) List(ctx context.Context) []Route {
	return r.store.Routes(ctx)
}

func (r RouteStore) Delete(ctx context.Context, id string) error {
	routes := r.store.Routes(ctx)
	kept := routes[:0]
	for _, route := range routes {
		if route.ID != id {
			kept = append(kept, route)
		}
	}
	if len(kept) == len(routes) {
		return fmt.Errorf("no route with id %q", id)
	}
	return r.store.SaveRoutes(ctx, kept)
}
