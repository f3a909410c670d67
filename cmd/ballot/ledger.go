package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/cli"
	"go.dedis.ch/ballot/contracts/election"
	"go.dedis.ch/ballot/contracts/election/controller"
	"go.dedis.ch/ballot/contracts/election/types"
	"go.dedis.ch/ballot/contracts/timestamp"
	"go.dedis.ch/ballot/core/store/kv"
	"go.dedis.ch/ballot/core/validation"
	"go.dedis.ch/ballot/proxy"
	proxyhttp "go.dedis.ch/ballot/proxy/http"
	sjson "go.dedis.ch/ballot/serde/json"
	"golang.org/x/xerrors"
)

// maxBatchSize is the maximum size of a batch submitted to the node.
const maxBatchSize = 4 << 20

// collectionNames are the names of the collections in the order of the state
// hash.
var collectionNames = []string{"participants", "administrations", "elections", "votes"}

// ledgerInitializer contributes the commands that apply transactions to the
// ledger and read it.
//
// - implements cli.Initializer
type ledgerInitializer struct{}

// SetCommands implements cli.Initializer.
func (ledgerInitializer) SetCommands(builder cli.Builder) {
	action := ledgerAction{
		printer:      os.Stdout,
		config:       configReader{readFile: os.ReadFile},
		readFile:     os.ReadFile,
		openDB:       kv.New,
		newProxy:     func(addr string) proxy.Proxy { return proxyhttp.NewHTTP(addr) },
		sigs:         make(chan os.Signal, 1),
		enableSignal: true,
	}

	ledger := builder.SetCommand("ledger")
	ledger.SetDescription("apply transactions to the ledger and read it")

	cmd := ledger.SetSubCommand("apply")
	cmd.SetDescription("apply a batch of transactions in order")
	cmd.SetFlags(append([]cli.Flag{
		cli.StringFlag{
			Name:     "file",
			Usage:    "path to the batch with one JSON transaction per line",
			Required: true,
		},
	}, configFlags...)...)
	cmd.SetAction(action.applyAction)

	cmd = ledger.SetSubCommand("hash")
	cmd.SetDescription("print the digest of each collection")
	cmd.SetFlags(configFlags...)
	cmd.SetAction(action.hashAction)

	cmd = ledger.SetSubCommand("show")
	cmd.SetDescription("print the elections with their status and tally")
	cmd.SetFlags(append([]cli.Flag{
		cli.IntFlag{
			Name:  "election",
			Usage: "identifier of the election, all of them if not provided",
		},
	}, configFlags...)...)
	cmd.SetAction(action.showAction)

	cmd = ledger.SetSubCommand("serve")
	cmd.SetDescription("serve the read API and accept batches of transactions")
	cmd.SetFlags(append([]cli.Flag{
		cli.StringFlag{
			Name:  "listen",
			Env:   "BALLOT_LISTEN",
			Usage: "address of the HTTP server (default: 127.0.0.1:8080)",
		},
	}, configFlags...)...)
	cmd.SetAction(action.serveAction)
}

// ledgerAction defines the actions of the ledger commands. Defining the
// functions and the printer helps in testing the commands.
type ledgerAction struct {
	printer io.Writer
	config  configReader

	readFile func(path string) ([]byte, error)
	openDB   func(path string) (kv.DB, error)
	newProxy func(addr string) proxy.Proxy

	sigs         chan os.Signal
	enableSignal bool
}

func (a ledgerAction) open(flags cli.Flags) (node, error) {
	cfg, err := a.config.read(flags)
	if err != nil {
		return node{}, err
	}

	return openNode(cfg, a.openDB)
}

func (a ledgerAction) applyAction(flags cli.Flags) error {
	data, err := a.readFile(flags.Path("file"))
	if err != nil {
		return xerrors.Errorf("failed to read batch: %v", err)
	}

	n, err := a.open(flags)
	if err != nil {
		return err
	}

	defer n.close()

	txs, err := n.decode(data)
	if err != nil {
		return xerrors.Errorf("failed to decode batch: %v", err)
	}

	res, err := n.apply(txs)
	if err != nil {
		return xerrors.Errorf("failed to validate batch: %v", err)
	}

	for _, txRes := range res.GetTransactionResults() {
		fmt.Fprintln(a.printer, formatResult(txRes))
	}

	return a.printHash(n)
}

func (a ledgerAction) hashAction(flags cli.Flags) error {
	n, err := a.open(flags)
	if err != nil {
		return err
	}

	defer n.close()

	return a.printHash(n)
}

func (a ledgerAction) printHash(n node) error {
	hashes, err := n.stateHash()
	if err != nil {
		return err
	}

	for i, hash := range hashes {
		fmt.Fprintf(a.printer, "%s: %x\n", collectionNames[i], hash)
	}

	return nil
}

func (a ledgerAction) showAction(flags cli.Flags) error {
	n, err := a.open(flags)
	if err != nil {
		return err
	}

	defer n.close()

	filter := int64(flags.Int("election"))

	return n.db.View(func(tx kv.ReadableTx) error {
		schema := election.NewSchema(tx)

		elections, err := schema.Elections()
		if err != nil {
			return xerrors.Errorf("failed to read elections: %v", err)
		}

		now, clockErr := timestamp.NewOracle().Now(tx)
		if clockErr != nil {
			fmt.Fprintf(a.printer, "ledger time: %v\n", clockErr)
		} else {
			fmt.Fprintf(a.printer, "ledger time: %s\n", now.Format(time.RFC3339))
		}

		for _, e := range elections {
			if filter != 0 && e.ID != filter {
				continue
			}

			tally, err := schema.Tally(e.ID)
			if err != nil {
				return xerrors.Errorf("failed to tally: %v", err)
			}

			status := "unknown"
			if clockErr == nil {
				status = e.StatusAt(now).String()
			}

			fmt.Fprintln(a.printer, formatElection(e, status, tally))
		}

		return nil
	})
}

func (a ledgerAction) serveAction(flags cli.Flags) error {
	if a.enableSignal {
		signal.Notify(a.sigs, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(a.sigs)
	}

	cfg, err := a.config.read(flags)
	if err != nil {
		return err
	}

	n, err := openNode(cfg, a.openDB)
	if err != nil {
		return err
	}

	defer n.close()

	registry := prometheus.NewRegistry()
	for _, c := range ballot.PromCollectors {
		err = registry.Register(c)
		if err != nil {
			return xerrors.Errorf("failed to register metrics: %v", err)
		}
	}

	srv := a.newProxy(cfg.Listen)

	controller.NewHandlers(n.db, timestamp.NewOracle(), cfg.Hash).Register(srv)

	srv.RegisterHandler("/transactions", submitHandler{
		node:   n,
		logger: ballot.Logger.With().Str("role", "submission").Logger(),
	}.ServeHTTP)

	srv.RegisterHandler("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).ServeHTTP)

	done := make(chan struct{})

	go func() {
		srv.Listen()
		close(done)
	}()

	<-a.sigs

	srv.Stop()
	<-done

	return nil
}

// submitHandler applies the batch of transactions in the body of a POST
// request and replies with the validation result in JSON, which echoes each
// transaction with its status.
type submitHandler struct {
	node   node
	logger zerolog.Logger
}

func (h submitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST is allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBatchSize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	txs, err := h.node.decode(data)
	if err != nil {
		http.Error(w, fmt.Sprintf("malformed batch: %v", err), http.StatusBadRequest)
		return
	}

	res, err := h.node.apply(txs)
	if err != nil {
		h.logger.Err(err).Str("requestID", proxyhttp.GetRequestID(r)).Msg("batch failed")
		http.Error(w, "failed to apply batch", http.StatusInternalServerError)
		return
	}

	data, err = res.Serialize(sjson.NewContext())
	if err != nil {
		h.logger.Err(err).Str("requestID", proxyhttp.GetRequestID(r)).Msg("failed to encode result")
		http.Error(w, "failed to encode result", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(data)
	if err != nil {
		h.logger.Err(err).Msg("failed to write response")
	}
}

func formatResult(res validation.TransactionResult) string {
	accepted, reason := res.GetStatus()
	if accepted {
		return fmt.Sprintf("%x: accepted", res.GetTransaction().GetID())
	}

	if res.GetCode() != 0 {
		return fmt.Sprintf("%x: rejected with code %d: %s",
			res.GetTransaction().GetID(), res.GetCode(), reason)
	}

	return fmt.Sprintf("%x: rejected: %s", res.GetTransaction().GetID(), reason)
}

func formatElection(e types.Election, status string, tally []uint64) string {
	options := make([]string, len(e.Options))
	for i, opt := range e.Options {
		options[i] = fmt.Sprintf("%s=%d", opt.Title, tally[i])
	}

	return fmt.Sprintf("#%d %s [%s] %s -> %s by %x: %s", e.ID, e.Name, status,
		e.StartDate.Format(time.RFC3339), e.FinishDate.Format(time.RFC3339), e.Issuer,
		strings.Join(options, " "))
}
