package dynamo

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"

	"github.com/cinemalab/cinema-data/internal/domain"
	"github.com/cinemalab/cinema-data/internal/observability"
)

// maxBatchWrite is the BatchWriteItem request limit.
const maxBatchWrite = 25

type TableState string

const (
	StateMissing  TableState = "MISSING"
	StateCreating TableState = "CREATING"
	StateActive   TableState = "ACTIVE"
)

// API is the subset of the DynamoDB client the synchronizer uses.
type API interface {
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	ListTables(ctx context.Context, in *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
}

type Option func(*Synchronizer)

// WithWaiter tunes how long and how often EnsureTable polls for ACTIVE.
func WithWaiter(timeout, minDelay time.Duration) Option {
	return func(s *Synchronizer) {
		s.waitTimeout = timeout
		s.waitMinDelay = minDelay
	}
}

// WithMaxRounds bounds how many times unprocessed items are resubmitted.
func WithMaxRounds(n int) Option {
	return func(s *Synchronizer) { s.maxRounds = n }
}

type Synchronizer struct {
	client       API
	specs        []TableSpec
	logger       observability.Logger
	waitTimeout  time.Duration
	waitMinDelay time.Duration
	maxRounds    int
}

func NewClient(cfg aws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg)
}

func NewSynchronizer(client API, specs []TableSpec, logger observability.Logger, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		client:       client,
		specs:        specs,
		logger:       logger,
		waitTimeout:  5 * time.Minute,
		waitMinDelay: 2 * time.Second,
		maxRounds:    5,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Synchronizer) spec(entity string) (TableSpec, error) {
	for _, sp := range s.specs {
		if sp.Entity == entity {
			return sp, nil
		}
	}
	return TableSpec{}, errors.Wrapf(domain.ErrInvalidInput, "no wide table for %q", entity)
}

// EnsureTable drives a table from MISSING through CREATING to ACTIVE and
// returns the state it found the table in.
func (s *Synchronizer) EnsureTable(ctx context.Context, spec TableSpec) (TableState, error) {
	log := s.logger.WithField("table", spec.Name)

	found := StateMissing
	out, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(spec.Name)})
	switch {
	case err == nil:
		if out.Table != nil && out.Table.TableStatus == types.TableStatusActive {
			log.Debug("table already active")
			return StateActive, nil
		}
		found = StateCreating
	case isNotFound(err):
		log.Info("creating table")
		if _, err := s.client.CreateTable(ctx, spec.createInput()); err != nil {
			var inUse *types.ResourceInUseException
			if !errors.As(err, &inUse) {
				return StateMissing, errors.Wrapf(err, "create table %s", spec.Name)
			}
		}
	default:
		return StateMissing, errors.Wrapf(err, "describe table %s", spec.Name)
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client, func(o *dynamodb.TableExistsWaiterOptions) {
		o.MinDelay = s.waitMinDelay
		if o.MaxDelay < o.MinDelay {
			o.MaxDelay = o.MinDelay
		}
	})
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(spec.Name)}, s.waitTimeout); err != nil {
		return found, errors.Wrapf(err, "wait for table %s", spec.Name)
	}
	log.Info("table active")
	return found, nil
}

// SetupTables ensures every configured table. One table failing does not stop
// the others; all failures are returned together.
func (s *Synchronizer) SetupTables(ctx context.Context) (map[string]TableState, error) {
	states := make(map[string]TableState, len(s.specs))
	var errs error
	for _, spec := range s.specs {
		state, err := s.EnsureTable(ctx, spec)
		if err != nil {
			s.logger.WithError(err).Errorf("setting up table %s", spec.Name)
			errs = errors.CombineErrors(errs, err)
			continue
		}
		states[spec.Name] = state
	}
	return states, errs
}

// BatchPut writes items to the entity's table in chunks of 25 put requests.
// Items are unordered and unconditional; a later put of the same key wins.
func (s *Synchronizer) BatchPut(ctx context.Context, entity string, items []map[string]any) (int, error) {
	spec, err := s.spec(entity)
	if err != nil {
		return 0, err
	}

	written := 0
	for start := 0; start < len(items); start += maxBatchWrite {
		end := start + maxBatchWrite
		if end > len(items) {
			end = len(items)
		}

		reqs := make([]types.WriteRequest, 0, end-start)
		for _, item := range items[start:end] {
			av, err := attributevalue.MarshalMap(item)
			if err != nil {
				return written, errors.Wrapf(err, "marshal %s item", entity)
			}
			reqs = append(reqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
		}

		if err := s.writeChunk(ctx, spec.Name, reqs); err != nil {
			return written, err
		}
		written += len(reqs)
		observability.DynamoItemsWritten.WithLabelValues(spec.Name).Add(float64(len(reqs)))
	}

	s.logger.WithFields(map[string]interface{}{"table": spec.Name, "items": written}).Info("items written")
	return written, nil
}

func (s *Synchronizer) writeChunk(ctx context.Context, table string, reqs []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{table: reqs}
	for round := 1; round <= s.maxRounds; round++ {
		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return errors.Wrapf(err, "batch write %s", table)
		}
		if len(out.UnprocessedItems[table]) == 0 {
			return nil
		}
		pending = out.UnprocessedItems
		s.logger.WithField("table", table).Warnf("resubmitting %d unprocessed items (round %d)", len(pending[table]), round)
	}
	return errors.Newf("batch write %s: %d items still unprocessed after %d rounds", table, len(pending[table]), s.maxRounds)
}

func (s *Synchronizer) ListTables(ctx context.Context) ([]string, error) {
	var names []string
	p := dynamodb.NewListTablesPaginator(s.client, &dynamodb.ListTablesInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "list tables")
		}
		names = append(names, page.TableNames...)
	}
	return names, nil
}

func isNotFound(err error) bool {
	var nf *types.ResourceNotFoundException
	return errors.As(err, &nf)
}
