package server

import (
	"net/http"
	"time"

	"fortune/service"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Services groups the core operations exposed over HTTP
type Services struct {
	Inventory      service.InventoryService
	Booking        service.BookingService
	FortuneCounter service.FortuneCounterService
	Wallet         service.WalletService
	Referral       service.ReferralService
	Cancellation   service.CancellationService
}

// Server translates HTTP requests to service calls
type Server struct {
	services Services
}

// New creates a new HTTP server over the given services
func New(services Services) *Server {
	return &Server{services: services}
}

// Router builds the chi router with the middleware stack and all routes
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(identityMiddleware)

	r.Get("/health", s.health)

	r.Route("/games", func(r chi.Router) {
		r.Post("/", s.createGame)
		r.Route("/{gameID}", func(r chi.Router) {
			r.Get("/version", s.getGameVersion)
			r.Post("/books", s.createBook)
			r.Get("/tickets/available", s.listAvailableTickets)
			r.Get("/tickets/{number}", s.getTicket)
			r.Post("/tickets/{number}/purchase", s.purchaseTicket)
			r.Get("/fortune-counter", s.getFortuneCounter)
			r.Get("/fortune-counter/pending", s.getPendingSettlement)
			r.Get("/fortune-counter/resets", s.listResets)
			r.Post("/fortune-counter/requests", s.requestSettlement)
		})
	})

	r.Post("/fortune-counter/requests/{requestID}/confirm", s.confirmSettlement)

	r.Route("/wallet", func(r chi.Router) {
		r.Get("/balance", s.getBalance)
		r.Get("/transactions", s.listTransactions)
		r.Post("/purchases", s.purchaseFC)
		r.Post("/debits", s.debit)
		r.Post("/credits", s.credit)
	})

	r.Route("/referrals", func(r chi.Router) {
		r.Get("/code", s.getReferralCode)
		r.Post("/link", s.linkReferral)
		r.Post("/qualifying-purchases", s.qualifyingPurchase)
	})

	r.Post("/bookings/{bookingID}/cancellations", s.requestCancellation)
	r.Get("/bookings/{bookingID}/cancellations/latest", s.getLatestCancellation)
	r.Put("/cancellations/{cancellationID}/status", s.setCancellationStatus)

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
