package server

import (
	"net/http"
	"strings"

	"fortune/models"
)

const (
	defaultAvailableLimit = 1000
	maxAvailableLimit     = 10000
)

// createGame handles POST /games
func (s *Server) createGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "invalid_body", "invalid request body: "+err.Error())
		return
	}

	game, err := s.services.Inventory.CreateGame(r.Context(), identityFrom(r.Context()), req.Name, req.TicketPrice, req.OrganizerID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newGameResponse(game))
}

// createBook handles POST /games/{gameID}/books
func (s *Server) createBook(w http.ResponseWriter, r *http.Request) {
	gameID, ok := int64Param(r, "gameID")
	if !ok {
		writeBadRequest(w, "invalid_game_id", "game id must be a positive integer")
		return
	}

	var req createBookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "invalid_body", "invalid request body: "+err.Error())
		return
	}

	book, err := s.services.Inventory.CreateBook(r.Context(), identityFrom(r.Context()), &models.Book{
		GameID:            gameID,
		BookName:          req.BookName,
		FirstTicketNumber: req.FirstTicketNumber,
		LastTicketNumber:  req.LastTicketNumber,
		IsOnlineAvailable: req.IsOnlineAvailable,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newBookResponse(book))
}

// getGameVersion handles GET /games/{gameID}/version
func (s *Server) getGameVersion(w http.ResponseWriter, r *http.Request) {
	gameID, ok := int64Param(r, "gameID")
	if !ok {
		writeBadRequest(w, "invalid_game_id", "game id must be a positive integer")
		return
	}

	version, err := s.services.Inventory.GetGameVersion(r.Context(), gameID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"game_id": gameID, "version": version})
}

// getTicket handles GET /games/{gameID}/tickets/{number}
func (s *Server) getTicket(w http.ResponseWriter, r *http.Request) {
	gameID, ok := int64Param(r, "gameID")
	if !ok {
		writeBadRequest(w, "invalid_game_id", "game id must be a positive integer")
		return
	}
	number, ok := int64Param(r, "number")
	if !ok {
		writeBadRequest(w, "invalid_ticket_number", "ticket number must be a positive integer")
		return
	}

	ticket, err := s.services.Inventory.GetTicket(r.Context(), gameID, number)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newTicketResponse(ticket))
}

// listAvailableTickets handles GET /games/{gameID}/tickets/available?channel=&limit=
func (s *Server) listAvailableTickets(w http.ResponseWriter, r *http.Request) {
	gameID, ok := int64Param(r, "gameID")
	if !ok {
		writeBadRequest(w, "invalid_game_id", "game id must be a positive integer")
		return
	}

	channel := models.Channel(strings.ToLower(r.URL.Query().Get("channel")))
	if channel == "" {
		channel = models.ChannelOnline
	}
	limit := min(intQuery(r, "limit", defaultAvailableLimit), maxAvailableLimit)

	tickets := make([]ticketResponse, 0)
	for ticket, err := range s.services.Inventory.ListAvailable(r.Context(), gameID, channel) {
		if err != nil {
			writeError(w, r, err)
			return
		}
		tickets = append(tickets, newTicketResponse(ticket))
		if len(tickets) >= limit {
			break
		}
	}

	writeJSON(w, http.StatusOK, tickets)
}

// purchaseTicket handles POST /games/{gameID}/tickets/{number}/purchase
func (s *Server) purchaseTicket(w http.ResponseWriter, r *http.Request) {
	gameID, ok := int64Param(r, "gameID")
	if !ok {
		writeBadRequest(w, "invalid_game_id", "game id must be a positive integer")
		return
	}
	number, ok := int64Param(r, "number")
	if !ok {
		writeBadRequest(w, "invalid_ticket_number", "ticket number must be a positive integer")
		return
	}

	var req purchaseTicketRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "invalid_body", "invalid request body: "+err.Error())
		return
	}

	ticket, err := s.services.Booking.PurchaseTicket(r.Context(), identityFrom(r.Context()), gameID, number, req.Channel, req.Buyer)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newTicketResponse(ticket))
}
