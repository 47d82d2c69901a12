//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/davidmz/freefeed-server-1/internal/content"
	"github.com/davidmz/freefeed-server-1/internal/events"
	"github.com/davidmz/freefeed-server-1/internal/fanout"
	"github.com/davidmz/freefeed-server-1/internal/feed"
	"github.com/davidmz/freefeed-server-1/internal/httpapi"
	"github.com/davidmz/freefeed-server-1/internal/media"
	"github.com/davidmz/freefeed-server-1/internal/socialgraph"
	"github.com/davidmz/freefeed-server-1/internal/stats"
	"github.com/davidmz/freefeed-server-1/internal/timeline"
	"github.com/davidmz/freefeed-server-1/internal/user"
)

// InitializeApplication builds the whole object graph; wire generates
// the real body in wire_gen.go.
func InitializeApplication() (*Application, func(), error) {
	wire.Build(
		ProvideConfig,
		ProvideDatabase,
		ProvideMongo,
		ProvideDispatcher,
		events.NewKafkaProducer,

		timeline.NewTimelineRepository,
		socialgraph.NewGraphRepository,
		content.NewContentRepository,
		user.NewUserRepository,
		stats.NewStatsRepository,

		socialgraph.NewGraphService,
		user.NewUserService,
		stats.NewStatsCache,
		stats.NewStatsService,
		media.NewService,
		fanout.NewWriter,
		feed.NewReader,
		httpapi.NewAPI,

		wire.Struct(new(Application), "*"),
	)
	return &Application{}, nil, nil
}
