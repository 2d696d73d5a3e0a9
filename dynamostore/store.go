// Package dynamostore implements attrstore.Store on Amazon DynamoDB.
//
// Each domain is a table keyed by the item name. Item attributes are stored as
// top-level list attributes:
//
//	| item_name | attr:Title  | attr:Body                      |
//	| ========= | =========== | ============================== |
//	| n-1       | ["hello"]   | ["[Sort0]...", "[Sort1]..."]   |
//
// Puts are UpdateItem calls so that names without a Replace attribute are appended to
// and names absent from the put are left alone.
package dynamostore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/nisimpson/attrstore"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Client defines the DynamoDB operations required by the Store.
type Client interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Ensure the SDK client implements Client
var _ Client = (*dynamodb.Client)(nil)

// Store keeps each domain in its own DynamoDB table.
type Store struct {
	client Client
	config Config
}

// Ensure Store implements attrstore.Store
var _ attrstore.Store = (*Store)(nil)

// New creates a new Store.
func New(client Client, config Config) *Store {
	config.validate()
	return &Store{
		client: client,
		config: config,
	}
}

// TableName returns the table that holds domain.
func (s *Store) TableName(domain string) string {
	return s.config.TablePrefix + domain
}

// CreateDomain creates the domain's table with on-demand billing. A table that already
// exists is not an error.
func (s *Store) CreateDomain(ctx context.Context, domain string) error {
	table := s.TableName(domain)

	_, err := s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(table),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String(s.config.KeyAttribute),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String(s.config.KeyAttribute),
				KeyType:       types.KeyTypeHash,
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})

	switch {
	case isErrorCode(err, "ResourceInUseException"):
		s.config.Logger.Debug("table exists", zap.String("table", table))
	case err != nil:
		return fmt.Errorf("failed to create table %s: %w", table, err)
	default:
		s.config.Logger.Debug("created table", zap.String("table", table))
	}

	if !s.config.WaitForTables {
		return nil
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}, s.config.WaitTimeout); err != nil {
		return fmt.Errorf("failed to wait for table %s: %w", table, err)
	}
	return nil
}

// DeleteDomain deletes the domain's table. A missing table is not an error.
func (s *Store) DeleteDomain(ctx context.Context, domain string) error {
	table := s.TableName(domain)

	_, err := s.client.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: aws.String(table)})
	if err != nil && !isErrorCode(err, "ResourceNotFoundException") {
		return fmt.Errorf("failed to delete table %s: %w", table, err)
	}
	return nil
}

// Domains lists the domains whose tables carry the configured prefix.
func (s *Store) Domains(ctx context.Context) ([]string, error) {
	var domains []string

	paginator := dynamodb.NewListTablesPaginator(s.client, &dynamodb.ListTablesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list tables: %w", err)
		}
		for _, table := range page.TableNames {
			if domain, ok := strings.CutPrefix(table, s.config.TablePrefix); ok && domain != "" {
				domains = append(domains, domain)
			}
		}
	}
	return domains, nil
}

// Select reads one page. A request for a single item is a Query on the hash key; any
// other request is a Scan.
func (s *Store) Select(ctx context.Context, in *attrstore.SelectInput) (*attrstore.SelectOutput, error) {
	table := s.TableName(in.Domain)

	startKey, err := s.startKey(table, in.NextToken)
	if err != nil {
		return nil, err
	}

	var (
		rows    []map[string]types.AttributeValue
		lastKey map[string]types.AttributeValue
	)

	if in.ItemName != "" {
		input, err := s.queryInput(table, in)
		if err != nil {
			return nil, err
		}
		input.ExclusiveStartKey = startKey

		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query table %s: %w", table, err)
		}
		rows, lastKey = out.Items, out.LastEvaluatedKey
	} else {
		input := &dynamodb.ScanInput{
			TableName:         aws.String(table),
			ConsistentRead:    aws.Bool(in.ConsistentRead),
			ExclusiveStartKey: startKey,
		}
		if in.Limit > 0 {
			input.Limit = aws.Int32(int32(in.Limit))
		}

		out, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan table %s: %w", table, err)
		}
		rows, lastKey = out.Items, out.LastEvaluatedKey
	}

	items := make([]attrstore.Item, 0, len(rows))
	for _, row := range rows {
		item, err := s.unmarshalRow(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	token, err := s.encodeToken(table, lastKey)
	if err != nil {
		return nil, err
	}

	s.config.Logger.Debug("selected page",
		zap.String("table", table),
		zap.Int("items", len(items)),
		zap.Bool("more", token != ""),
	)

	return &attrstore.SelectOutput{Items: items, NextToken: token}, nil
}

func (s *Store) queryInput(table string, in *attrstore.SelectInput) (*dynamodb.QueryInput, error) {
	keyCondition := expression.Key(s.config.KeyAttribute).Equal(expression.Value(in.ItemName))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCondition).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(in.ConsistentRead),
	}
	if in.Limit > 0 {
		input.Limit = aws.Int32(int32(in.Limit))
	}
	return input, nil
}

// BatchPut writes each item with an UpdateItem call, up to Config.Concurrency at a time.
func (s *Store) BatchPut(ctx context.Context, domain string, items []attrstore.Item) error {
	table := s.TableName(domain)

	inputs := make([]*dynamodb.UpdateItemInput, len(items))
	for i, item := range items {
		input, err := s.updateInput(table, item)
		if err != nil {
			return err
		}
		inputs[i] = input
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)

	for _, input := range inputs {
		g.Go(func() error {
			if _, err := s.client.UpdateItem(ctx, input); err != nil {
				return fmt.Errorf("failed to update item in table %s: %w", table, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.config.Logger.Debug("put items",
		zap.String("table", table),
		zap.Int("items", len(items)),
	)
	return nil
}

// updateInput builds the update for one item. Replaced names are overwritten and the
// rest are appended to any stored list.
func (s *Store) updateInput(table string, item attrstore.Item) (*dynamodb.UpdateItemInput, error) {
	if item.Name == "" {
		return nil, fmt.Errorf("invalid item name: empty")
	}

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(table),
		Key: map[string]types.AttributeValue{
			s.config.KeyAttribute: &types.AttributeValueMemberS{Value: item.Name},
		},
	}

	replaced := make(map[string]bool)
	for _, attr := range item.Attributes {
		if attr.Replace {
			replaced[attr.Name] = true
		}
	}

	var update expression.UpdateBuilder
	for i, name := range item.Names() {
		path := expression.NameNoDotSplit(s.config.AttributePrefix + name)
		values := expression.Value(item.Values(name))

		var operand expression.OperandBuilder = values
		if !replaced[name] {
			operand = expression.ListAppend(expression.IfNotExists(path, expression.Value([]string{})), values)
		}

		if i == 0 {
			update = expression.Set(path, operand)
		} else {
			update = update.Set(path, operand)
		}
	}

	// an item without attributes is created from its key alone
	if len(item.Attributes) == 0 {
		return input, nil
	}

	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input.UpdateExpression = expr.Update()
	input.ExpressionAttributeNames = expr.Names()
	input.ExpressionAttributeValues = expr.Values()
	return input, nil
}

// BatchDelete removes the named items in batches of attrstore.MaxBatchSize. Unprocessed
// deletes are resubmitted up to Config.MaxRetries times.
func (s *Store) BatchDelete(ctx context.Context, domain string, names []string) error {
	table := s.TableName(domain)

	for i := 0; i < len(names); i += attrstore.MaxBatchSize {
		end := min(i+attrstore.MaxBatchSize, len(names))

		requests := make([]types.WriteRequest, 0, end-i)
		for _, name := range names[i:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{
					Key: map[string]types.AttributeValue{
						s.config.KeyAttribute: &types.AttributeValueMemberS{Value: name},
					},
				},
			})
		}

		if err := s.writeBatch(ctx, table, requests); err != nil {
			return err
		}
	}

	s.config.Logger.Debug("deleted items",
		zap.String("table", table),
		zap.Int("items", len(names)),
	)
	return nil
}

func (s *Store) writeBatch(ctx context.Context, table string, requests []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{table: requests}

	for attempt := 0; ; attempt++ {
		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return fmt.Errorf("failed to write batch to table %s: %w", table, err)
		}

		pending = out.UnprocessedItems
		if len(pending[table]) == 0 {
			return nil
		}
		if attempt >= s.config.MaxRetries {
			return fmt.Errorf("failed to write batch to table %s: %d requests unprocessed", table, len(pending[table]))
		}

		s.config.Logger.Warn("resubmitting unprocessed requests",
			zap.String("table", table),
			zap.Int("requests", len(pending[table])),
			zap.Int("attempt", attempt+1),
		)
	}
}

// unmarshalRow converts a table row into an item. Attributes are ordered by name.
func (s *Store) unmarshalRow(row map[string]types.AttributeValue) (attrstore.Item, error) {
	var item attrstore.Item

	key, ok := row[s.config.KeyAttribute]
	if !ok {
		return item, fmt.Errorf("row missing key attribute %s", s.config.KeyAttribute)
	}
	if err := attributevalue.Unmarshal(key, &item.Name); err != nil {
		return item, fmt.Errorf("failed to unmarshal item name: %w", err)
	}

	names := make([]string, 0, len(row))
	for column := range row {
		if name, ok := strings.CutPrefix(column, s.config.AttributePrefix); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var values []string
		if err := attributevalue.Unmarshal(row[s.config.AttributePrefix+name], &values); err != nil {
			return item, fmt.Errorf("failed to unmarshal attribute %s of item %s: %w", name, item.Name, err)
		}
		for _, value := range values {
			item.Attributes = append(item.Attributes, attrstore.Attribute{Name: name, Value: value})
		}
	}
	return item, nil
}

// isErrorCode reports whether err is a DynamoDB API error with the given code.
func isErrorCode(err error, code string) bool {
	var ae smithy.APIError
	return errors.As(err, &ae) && ae.ErrorCode() == code
}
