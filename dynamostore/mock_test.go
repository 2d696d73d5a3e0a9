package dynamostore

import (
	"context"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

type apiCall[T, U any] = func(context.Context, *T, ...func(*dynamodb.Options)) (*U, error)

// mockClient is an expectation-based Client. Unset operations fail the test.
type mockClient struct {
	CreateTableFunc    apiCall[dynamodb.CreateTableInput, dynamodb.CreateTableOutput]
	DescribeTableFunc  apiCall[dynamodb.DescribeTableInput, dynamodb.DescribeTableOutput]
	DeleteTableFunc    apiCall[dynamodb.DeleteTableInput, dynamodb.DeleteTableOutput]
	ListTablesFunc     apiCall[dynamodb.ListTablesInput, dynamodb.ListTablesOutput]
	QueryFunc          apiCall[dynamodb.QueryInput, dynamodb.QueryOutput]
	ScanFunc           apiCall[dynamodb.ScanInput, dynamodb.ScanOutput]
	UpdateItemFunc     apiCall[dynamodb.UpdateItemInput, dynamodb.UpdateItemOutput]
	BatchWriteItemFunc apiCall[dynamodb.BatchWriteItemInput, dynamodb.BatchWriteItemOutput]

	mu    sync.Mutex
	calls map[string]int
}

var _ Client = (*mockClient)(nil)

func newMockClient(t *testing.T) *mockClient {
	return &mockClient{
		CreateTableFunc:    unexpected[dynamodb.CreateTableInput, dynamodb.CreateTableOutput](t, "CreateTable"),
		DescribeTableFunc:  unexpected[dynamodb.DescribeTableInput, dynamodb.DescribeTableOutput](t, "DescribeTable"),
		DeleteTableFunc:    unexpected[dynamodb.DeleteTableInput, dynamodb.DeleteTableOutput](t, "DeleteTable"),
		ListTablesFunc:     unexpected[dynamodb.ListTablesInput, dynamodb.ListTablesOutput](t, "ListTables"),
		QueryFunc:          unexpected[dynamodb.QueryInput, dynamodb.QueryOutput](t, "Query"),
		ScanFunc:           unexpected[dynamodb.ScanInput, dynamodb.ScanOutput](t, "Scan"),
		UpdateItemFunc:     unexpected[dynamodb.UpdateItemInput, dynamodb.UpdateItemOutput](t, "UpdateItem"),
		BatchWriteItemFunc: unexpected[dynamodb.BatchWriteItemInput, dynamodb.BatchWriteItemOutput](t, "BatchWriteItem"),
	}
}

func unexpected[T, U any](t *testing.T, op string) apiCall[T, U] {
	return func(context.Context, *T, ...func(*dynamodb.Options)) (*U, error) {
		t.Fatalf("unexpected call to %s", op)
		return nil, nil
	}
}

func (m *mockClient) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[op]++
}

func (m *mockClient) count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *mockClient) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	m.record("CreateTable")
	return m.CreateTableFunc(ctx, params, optFns...)
}

func (m *mockClient) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	m.record("DescribeTable")
	return m.DescribeTableFunc(ctx, params, optFns...)
}

func (m *mockClient) DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error) {
	m.record("DeleteTable")
	return m.DeleteTableFunc(ctx, params, optFns...)
}

func (m *mockClient) ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
	m.record("ListTables")
	return m.ListTablesFunc(ctx, params, optFns...)
}

func (m *mockClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.record("Query")
	return m.QueryFunc(ctx, params, optFns...)
}

func (m *mockClient) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	m.record("Scan")
	return m.ScanFunc(ctx, params, optFns...)
}

func (m *mockClient) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	m.record("UpdateItem")
	return m.UpdateItemFunc(ctx, params, optFns...)
}

func (m *mockClient) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	m.record("BatchWriteItem")
	return m.BatchWriteItemFunc(ctx, params, optFns...)
}
