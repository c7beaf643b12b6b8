package index

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/dbsmedya/custrecon/internal/config"
)

// ObjectPager fetches one page of objects of a class after the given object ID.
type ObjectPager interface {
	Page(ctx context.Context, class, after string, limit int) ([]*models.Object, error)
}

// clientPager is the ObjectPager backed by a Weaviate client.
type clientPager struct {
	client *weaviate.Client
}

func (p *clientPager) Page(ctx context.Context, class, after string, limit int) ([]*models.Object, error) {
	getter := p.client.Data().ObjectsGetter().
		WithClassName(class).
		WithLimit(limit)
	if after != "" {
		getter = getter.WithAfter(after)
	}
	return getter.Do(ctx)
}

// NewWeaviatePager creates an ObjectPager for the configured Weaviate instance.
func NewWeaviatePager(cfg config.WeaviateIndex) (ObjectPager, error) {
	wcfg := weaviate.Config{
		Host:   cfg.Host,
		Scheme: cfg.Scheme,
	}
	if cfg.APIKey != "" {
		wcfg.Headers = map[string]string{"Authorization": "Bearer " + cfg.APIKey}
	}
	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}
	return &clientPager{client: client}, nil
}

// WeaviateLister walks a class with the object cursor API and reads the
// customer identifier from a property of each object.
type WeaviateLister struct {
	pager      ObjectPager
	class      string
	property   string
	pageSize   int
	after      string
	maxElapsed time.Duration
}

// NewWeaviateLister creates a lister over class, reading property.
func NewWeaviateLister(pager ObjectPager, class, property string, pageSize int) (*WeaviateLister, error) {
	if pager == nil {
		return nil, fmt.Errorf("weaviate pager is nil")
	}
	if class == "" || property == "" {
		return nil, fmt.Errorf("weaviate class and property are required")
	}
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", pageSize)
	}
	return &WeaviateLister{
		pager:      pager,
		class:      class,
		property:   property,
		pageSize:   pageSize,
		maxElapsed: 30 * time.Second,
	}, nil
}

// NextPage implements Lister. Transient failures are retried with
// exponential backoff before the page is given up. Pages whose objects carry
// no identifier are skipped so they do not end the listing early.
func (l *WeaviateLister) NextPage(ctx context.Context) ([]string, error) {
	for {
		objects, err := l.fetch(ctx)
		if err != nil {
			return nil, err
		}
		if len(objects) == 0 {
			return nil, nil
		}

		// The cursor advances over every object, including those without the property.
		l.after = string(objects[len(objects)-1].ID)

		ids := make([]string, 0, len(objects))
		for _, obj := range objects {
			if id, ok := propertyString(obj, l.property); ok {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			return ids, nil
		}
	}
}

func (l *WeaviateLister) fetch(ctx context.Context) ([]*models.Object, error) {
	var objects []*models.Object

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = l.maxElapsed
	err := backoff.Retry(func() error {
		var err error
		objects, err = l.pager.Page(ctx, l.class, l.after, l.pageSize)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s objects after %q: %w", l.class, l.after, err)
	}
	return objects, nil
}

// propertyString reads a scalar property as a string. Numbers decoded from
// JSON arrive as float64 and are formatted without a fraction.
func propertyString(obj *models.Object, name string) (string, bool) {
	if obj == nil {
		return "", false
	}
	props, ok := obj.Properties.(map[string]interface{})
	if !ok {
		return "", false
	}
	switch v := props[name].(type) {
	case string:
		v = strings.TrimSpace(v)
		return v, v != ""
	case float64:
		return fmt.Sprintf("%.0f", v), true
	case int64:
		return fmt.Sprintf("%d", v), true
	case int:
		return fmt.Sprintf("%d", v), true
	default:
		return "", false
	}
}
