// Package controller implements the HTTP read API of the election ledger. Each
// request reads a consistent view of the database.
package controller

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/contracts/election"
	"go.dedis.ch/ballot/contracts/election/types"
	"go.dedis.ch/ballot/core/store/kv"
	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/proxy"
	"golang.org/x/xerrors"
)

// statusUnknown is the status reported when the ledger time is not available.
const statusUnknown = "unknown"

// OptionResponse is the description of an election option.
type OptionResponse struct {
	ID    int32
	Title string
	Votes uint64
}

// ElectionResponse is the description of an election.
type ElectionResponse struct {
	ID         int64
	Name       string
	Issuer     string
	StartDate  time.Time
	FinishDate time.Time
	Status     string
	Options    []OptionResponse
	TxHash     string
}

// ParticipantResponse is the public description of a participant. The pass
// code is not exposed.
type ParticipantResponse struct {
	Key         string
	Name        string
	Email       string
	PhoneNumber string
	TxHash      string
}

// AdministrationResponse is the description of an administration.
type AdministrationResponse struct {
	Key          string
	Name         string
	PrincipalKey string `json:",omitempty"`
	TxHash       string
}

// StateResponse is the digest of each collection of the ledger.
type StateResponse struct {
	Participants    string
	Administrations string
	Elections       string
	Votes           string
}

// Handlers serves the read API on top of a database.
type Handlers struct {
	db          kv.DB
	clock       election.Clock
	hashFactory crypto.HashFactory
	logger      zerolog.Logger
}

// NewHandlers returns the handlers reading the database. The clock is used to
// derive the status of the elections.
func NewHandlers(db kv.DB, clock election.Clock, hashFactory crypto.HashFactory) Handlers {
	return Handlers{
		db:          db,
		clock:       clock,
		hashFactory: hashFactory,
		logger:      ballot.Logger.With().Str("role", "election api").Logger(),
	}
}

// Register registers the routes of the API to the proxy.
func (h Handlers) Register(p proxy.Proxy) {
	p.RegisterHandler("/elections", h.Elections)
	p.RegisterHandler("/elections/{id}", h.Election)
	p.RegisterHandler("/participants/{key}", h.Participant)
	p.RegisterHandler("/administrations/{key}", h.Administration)
	p.RegisterHandler("/state", h.State)
}

// Elections returns the list of elections with their status and tally.
func (h Handlers) Elections(w http.ResponseWriter, r *http.Request) {
	var resp []ElectionResponse

	err := h.db.View(func(tx kv.ReadableTx) error {
		schema := election.NewSchema(tx)

		elections, err := schema.Elections()
		if err != nil {
			return err
		}

		status := h.statusFn(tx)

		resp = make([]ElectionResponse, len(elections))
		for i, e := range elections {
			resp[i], err = makeElection(schema, e, status)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	h.send(w, resp)
}

// Election returns the election of the identifier in the path.
func (h Handlers) Election(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid election identifier", http.StatusBadRequest)
		return
	}

	var resp *ElectionResponse

	err = h.db.View(func(tx kv.ReadableTx) error {
		schema := election.NewSchema(tx)

		e, found, err := schema.Election(id)
		if err != nil || !found {
			return err
		}

		res, err := makeElection(schema, e, h.statusFn(tx))
		if err != nil {
			return err
		}

		resp = &res

		return nil
	})
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	if resp == nil {
		http.Error(w, "election not found", http.StatusNotFound)
		return
	}

	h.send(w, resp)
}

// Participant returns the participant of the hexadecimal key in the path.
func (h Handlers) Participant(w http.ResponseWriter, r *http.Request) {
	key, err := hex.DecodeString(mux.Vars(r)["key"])
	if err != nil {
		http.Error(w, "invalid key", http.StatusBadRequest)
		return
	}

	var resp *ParticipantResponse

	err = h.db.View(func(tx kv.ReadableTx) error {
		p, found, err := election.NewSchema(tx).Participant(key)
		if err != nil || !found {
			return err
		}

		resp = &ParticipantResponse{
			Key:         hex.EncodeToString(p.Key),
			Name:        p.Name,
			Email:       p.Email,
			PhoneNumber: p.PhoneNumber,
			TxHash:      hex.EncodeToString(p.TxHash),
		}

		return nil
	})
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	if resp == nil {
		http.Error(w, "participant not found", http.StatusNotFound)
		return
	}

	h.send(w, resp)
}

// Administration returns the administration of the hexadecimal key in the
// path.
func (h Handlers) Administration(w http.ResponseWriter, r *http.Request) {
	key, err := hex.DecodeString(mux.Vars(r)["key"])
	if err != nil {
		http.Error(w, "invalid key", http.StatusBadRequest)
		return
	}

	var resp *AdministrationResponse

	err = h.db.View(func(tx kv.ReadableTx) error {
		a, found, err := election.NewSchema(tx).Administration(key)
		if err != nil || !found {
			return err
		}

		resp = &AdministrationResponse{
			Key:          hex.EncodeToString(a.Key),
			Name:         a.Name,
			PrincipalKey: hex.EncodeToString(a.PrincipalKey),
			TxHash:       hex.EncodeToString(a.TxHash),
		}

		return nil
	})
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	if resp == nil {
		http.Error(w, "administration not found", http.StatusNotFound)
		return
	}

	h.send(w, resp)
}

// State returns the digests of the collections.
func (h Handlers) State(w http.ResponseWriter, r *http.Request) {
	var hashes [][]byte

	err := h.db.View(func(tx kv.ReadableTx) error {
		var err error
		hashes, err = election.NewSchema(tx, election.WithHashFactory(h.hashFactory)).StateHash()

		return err
	})
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	h.send(w, StateResponse{
		Participants:    hex.EncodeToString(hashes[0]),
		Administrations: hex.EncodeToString(hashes[1]),
		Elections:       hex.EncodeToString(hashes[2]),
		Votes:           hex.EncodeToString(hashes[3]),
	})
}

// statusFn returns a function that derives the status of an election at the
// current ledger time.
func (h Handlers) statusFn(tx kv.ReadableTx) func(types.Election) string {
	now, err := h.clock.Now(tx)
	if err != nil {
		h.logger.Debug().Err(err).Msg("ledger time not available")

		return func(types.Election) string { return statusUnknown }
	}

	return func(e types.Election) string {
		return e.StatusAt(now).String()
	}
}

func (h Handlers) send(w http.ResponseWriter, resp interface{}) {
	w.Header().Set("Content-Type", "application/json")

	err := json.NewEncoder(w).Encode(resp)
	if err != nil {
		h.logger.Err(err).Msg("failed to write response")
	}
}

func (h Handlers) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Err(err).Str("url", r.URL.Path).Msg("request failed")

	http.Error(w, "failed to read ledger", http.StatusInternalServerError)
}

func makeElection(schema election.Schema, e types.Election,
	status func(types.Election) string) (ElectionResponse, error) {

	tally, err := schema.Tally(e.ID)
	if err != nil {
		return ElectionResponse{}, xerrors.Errorf("failed to tally: %v", err)
	}

	options := make([]OptionResponse, len(e.Options))
	for i, opt := range e.Options {
		options[i] = OptionResponse{ID: opt.ID, Title: opt.Title, Votes: tally[i]}
	}

	resp := ElectionResponse{
		ID:         e.ID,
		Name:       e.Name,
		Issuer:     hex.EncodeToString(e.Issuer),
		StartDate:  e.StartDate,
		FinishDate: e.FinishDate,
		Status:     status(e),
		Options:    options,
		TxHash:     hex.EncodeToString(e.TxHash),
	}

	return resp, nil
}
