package app

import (
	"database/sql"

	"github.com/daypick/daypick/internal/config"
	"github.com/daypick/daypick/internal/event_bus"
	"github.com/daypick/daypick/internal/utils"
	"github.com/daypick/daypick/pkg/attendee"
	"github.com/daypick/daypick/pkg/availability"
	"github.com/daypick/daypick/pkg/dayblock"
	"github.com/daypick/daypick/pkg/login"
	"github.com/daypick/daypick/pkg/schedule"
	"github.com/daypick/daypick/pkg/user"
	"github.com/daypick/daypick/pkg/vote"
	log "github.com/sirupsen/logrus"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Bus   *event_bus.EventBus
	Clock utils.Clock

	UserService user.Service
	GoogleAuth  *login.GoogleAuth

	EventRepo    schedule.EventRepository
	EventService schedule.EventService
	Sweeper      *schedule.Sweeper
	EventHandler *schedule.EventHandler

	AttendeeRepo    attendee.Repository
	AttendeeService attendee.Service
	AttendeeHandler *attendee.Handler

	VoteRepo    vote.Repository
	VoteService vote.Service
	VoteHandler *vote.Handler

	DayBlockRepo    dayblock.Repository
	DayBlockService dayblock.Service
	DayBlockHandler *dayblock.Handler

	AvailabilityService availability.Service
	AvailabilityHandler *availability.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *sql.DB, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.Bus = event_bus.NewEventBus()
	deps.Clock = &utils.SystemClock{}

	deps.UserService = user.NewUserService(user.NewUserRepo(db))
	deps.GoogleAuth = login.NewGoogleAuth(db, deps.UserService, cfg)

	deps.AttendeeRepo = attendee.NewRepository(db)

	deps.EventRepo = schedule.NewEventRepository(db)
	deps.EventService = schedule.NewEventService(deps.EventRepo, attendee.NewRegistrar(deps.AttendeeRepo), deps.Bus, deps.Clock)
	deps.Sweeper = schedule.NewSweeper(deps.EventService, deps.EventRepo, deps.Clock)
	deps.EventHandler = schedule.NewEventHandler(deps.EventService, deps.Sweeper, deps.Clock)

	deps.AttendeeService = attendee.NewService(deps.AttendeeRepo, deps.EventService, deps.Bus, deps.Clock)
	deps.AttendeeHandler = attendee.NewHandler(deps.AttendeeService)

	deps.VoteRepo = vote.NewRepository(db)
	deps.VoteService = vote.NewService(deps.VoteRepo, deps.EventService, deps.Bus, deps.Clock)
	deps.VoteHandler = vote.NewHandler(deps.VoteService, deps.AttendeeService)

	deps.DayBlockRepo = dayblock.NewRepository(db)
	deps.DayBlockService = dayblock.NewService(deps.DayBlockRepo, deps.EventService, deps.Bus, deps.Clock)
	deps.DayBlockHandler = dayblock.NewHandler(deps.DayBlockService, deps.AttendeeService)

	deps.AvailabilityService = availability.NewService(deps.EventService, deps.VoteRepo, deps.DayBlockRepo, deps.AttendeeRepo)
	deps.AvailabilityHandler = availability.NewHandler(deps.AvailabilityService)

	subscribeChangeLog(deps.Bus)

	return deps
}

// subscribeChangeLog logs every state change notification, so the event
// history of an instance can be reconstructed from the logs.
func subscribeChangeLog(bus *event_bus.EventBus) {
	for _, name := range []event_bus.ChangeName{
		event_bus.VoteRecorded,
		event_bus.BlocksSaved,
		event_bus.PhaseChanged,
		event_bus.FinalDateSet,
		event_bus.AttendeeJoined,
	} {
		bus.Subscribe(name, func(c event_bus.Change) error {
			log.WithFields(log.Fields{
				"change":  c.Name,
				"eventId": c.EventID,
			}).Debug("state change")
			return nil
		})
	}
}
