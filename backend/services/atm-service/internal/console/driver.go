package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"smartatm/backend/libs/logging"
	"smartatm/backend/services/atm-service/internal/atm"
	"smartatm/backend/services/atm-service/internal/models"
	"smartatm/backend/services/atm-service/internal/pipeline"
)

// Teller is the machine surface the driver sequences.
type Teller interface {
	InsertCard(ctx context.Context, card string) (atm.Result, error)
	SubmitBiometric(ctx context.Context, code string) (atm.Result, error)
	SubmitPIN(ctx context.Context, pin string) (atm.Result, error)
	RequestTransaction(ctx context.Context, req pipeline.Request) (atm.Result, error)
	Eject(ctx context.Context) (atm.Result, error)
	Session() atm.Session
}

const helpText = `Commands:
  insert <card>       insert a card
  bio <code>          submit biometric code
  pin <pin>           submit PIN
  withdraw <amount>   withdraw cash
  deposit <amount>    deposit cash
  balance             show balance
  eject               eject the card
  status              show session state
  help                show this help
  quit                leave`

// Driver reads commands line by line and turns them into teller events.
type Driver struct {
	teller Teller
	in     io.Reader
	out    io.Writer
	prompt string
	logger *zap.Logger
}

// NewDriver returns a driver reading from in and writing to out.
func NewDriver(teller Teller, in io.Reader, out io.Writer, logger *zap.Logger) *Driver {
	return &Driver{teller: teller, in: in, out: out, prompt: "atm> ", logger: logger}
}

// Run processes input until quit, end of input or ctx cancellation.
func (d *Driver) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(d.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	d.println("=== Welcome to Smart ATM ===")
	d.println("Type 'help' for commands.")
	for {
		fmt.Fprint(d.out, d.prompt)
		select {
		case <-ctx.Done():
			d.println("")
			return nil
		case line, ok := <-lines:
			if !ok {
				d.println("")
				d.println("Thank you for using Smart ATM!")
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			if quit := d.Execute(ctx, line); quit {
				return nil
			}
		}
	}
}

// Execute runs one command line and reports whether the driver should stop.
func (d *Driver) Execute(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "insert":
		if len(args) != 1 {
			d.println("Usage: insert <card>")
			return false
		}
		d.fire(atm.EventInsertCard, func() (atm.Result, error) { return d.teller.InsertCard(ctx, args[0]) })
	case "bio":
		if len(args) != 1 {
			d.println("Usage: bio <code>")
			return false
		}
		d.fire(atm.EventSubmitBiometric, func() (atm.Result, error) { return d.teller.SubmitBiometric(ctx, args[0]) })
	case "pin":
		if len(args) != 1 {
			d.println("Usage: pin <pin>")
			return false
		}
		d.fire(atm.EventSubmitPIN, func() (atm.Result, error) { return d.teller.SubmitPIN(ctx, args[0]) })
	case "withdraw", "deposit":
		if len(args) != 1 {
			d.printf("Usage: %s <amount>\n", cmd)
			return false
		}
		amount, err := decimal.NewFromString(args[0])
		if err != nil {
			d.println("Invalid amount.")
			return false
		}
		d.transact(ctx, models.TransactionKind(cmd), amount)
	case "balance":
		d.transact(ctx, models.KindBalance, decimal.Zero)
	case "eject":
		d.fire(atm.EventEject, func() (atm.Result, error) { return d.teller.Eject(ctx) })
	case "status":
		s := d.teller.Session()
		if s.State == atm.StateIdle {
			d.println("State: idle")
		} else {
			d.printf("State: %s (card %s)\n", s.State, logging.MaskCard(s.Card))
		}
	case "help":
		d.println(helpText)
	case "quit", "exit":
		d.println("Thank you for using Smart ATM!")
		return true
	default:
		d.println("Unknown command. Type 'help' for commands.")
	}
	return false
}

func (d *Driver) transact(ctx context.Context, kind models.TransactionKind, amount decimal.Decimal) {
	before := d.teller.Session().State
	res, err := d.teller.RequestTransaction(ctx, pipeline.Request{Kind: kind, Amount: amount})
	if err != nil || res.Status != atm.StatusCompleted {
		d.report(atm.EventRequestTransaction, before, res, err)
		return
	}
	switch kind {
	case models.KindWithdraw:
		d.printf("Withdrawn: %s\n", amount.StringFixed(2))
	case models.KindDeposit:
		d.printf("Deposited: %s\n", amount.StringFixed(2))
	}
	d.printf("Balance: %s\n", res.Balance.StringFixed(2))
}

func (d *Driver) fire(ev atm.Event, call func() (atm.Result, error)) {
	before := d.teller.Session().State
	res, err := call()
	d.report(ev, before, res, err)
}

// report prints the outcome of ev, which was raised in state before.
func (d *Driver) report(ev atm.Event, before atm.State, res atm.Result, err error) {
	switch res.Status {
	case atm.StatusAccepted:
		d.println(acceptedMessage(ev, before, d.teller.Session()))
	case atm.StatusUnauthorized:
		if ev == atm.EventInsertCard {
			d.println("No such account exists.")
			return
		}
		if ev == atm.EventSubmitPIN {
			d.println("Incorrect PIN code.")
		} else {
			d.println("Incorrect biometric code.")
		}
		d.println("Transaction invalid. Card ejected.")
	case atm.StatusPreconditionViolation:
		d.println(preconditionMessage(ev, before))
	case atm.StatusFraudRejected:
		d.println("Fraud Alert: Withdrawal exceeds limit!")
	case atm.StatusInsufficientFunds:
		d.println("Insufficient Balance")
	case atm.StatusInvalidRequest:
		if errors.Is(err, pipeline.ErrInvalidAmount) {
			d.println("Invalid amount.")
		} else {
			d.println("Unknown transaction type.")
		}
	case atm.StatusServiceUnavailable:
		d.logger.Error("teller event failed", zap.String("event", string(ev)), zap.Error(err))
		d.println("Bank service unavailable. Card ejected.")
	default:
		if err != nil {
			d.logger.Error("teller event failed", zap.String("event", string(ev)), zap.Error(err))
		}
		d.printf("Unexpected result: %s\n", res.Status)
	}
}

func acceptedMessage(ev atm.Event, before atm.State, s atm.Session) string {
	switch ev {
	case atm.EventInsertCard:
		return "Card inserted: " + logging.MaskCard(s.Card)
	case atm.EventSubmitBiometric:
		return "Biometric verified."
	case atm.EventSubmitPIN:
		return "PIN verified."
	case atm.EventEject:
		if before == atm.StateIdle {
			return "No card to eject."
		}
		return "Card ejected."
	}
	return "OK"
}

func preconditionMessage(ev atm.Event, state atm.State) string {
	if state == atm.StateIdle {
		return "Insert card first!"
	}
	switch ev {
	case atm.EventInsertCard:
		return "Card already inserted."
	case atm.EventSubmitBiometric:
		return "Biometric already verified."
	case atm.EventSubmitPIN:
		if state == atm.StateAuthenticated {
			return "PIN already verified."
		}
		return "Verify biometric first!"
	case atm.EventRequestTransaction:
		if state == atm.StatePinPending {
			return "Enter PIN first!"
		}
		return "Verify biometric first!"
	}
	return "Not allowed now."
}

func (d *Driver) println(s string) {
	fmt.Fprintln(d.out, s)
}

func (d *Driver) printf(format string, args ...interface{}) {
	fmt.Fprintf(d.out, format, args...)
}
