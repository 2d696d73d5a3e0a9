package dynamostore

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DefaultLocalEndpoint is the default address of DynamoDB Local.
const DefaultLocalEndpoint = "http://localhost:8000"

// NewLocalClient creates a DynamoDB client for a DynamoDB Local instance at endpoint.
// Region and credentials are placeholders; DynamoDB Local ignores them.
//
//	client := dynamostore.NewLocalClient(dynamostore.DefaultLocalEndpoint)
//	store := dynamostore.New(client, dynamostore.DefaultConfig())
func NewLocalClient(endpoint string) *dynamodb.Client {
	return dynamodb.New(dynamodb.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider("local", "local", ""),
	})
}

// Local is a connection to a DynamoDB Local instance with helpers for tests.
type Local struct {
	Client   *dynamodb.Client
	Endpoint string
}

// NewLocal creates a Local for the instance at endpoint.
func NewLocal(endpoint string) *Local {
	return &Local{
		Client:   NewLocalClient(endpoint),
		Endpoint: endpoint,
	}
}

// IsAvailable reports whether DynamoDB Local is accepting requests.
func (l *Local) IsAvailable(ctx context.Context) bool {
	u, err := url.Parse(l.Endpoint)
	if err != nil {
		return false
	}

	conn, err := net.DialTimeout("tcp", u.Host, 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()

	_, err = l.Client.ListTables(ctx, &dynamodb.ListTablesInput{})
	return err == nil
}

// WaitForAvailable waits for DynamoDB Local to become available.
func (l *Local) WaitForAvailable(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if l.IsAvailable(ctx) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}

	return fmt.Errorf("DynamoDB Local not available at %s after %v", l.Endpoint, timeout)
}

// Cleanup deletes every table whose name starts with prefix and waits for each
// deletion to finish.
func (l *Local) Cleanup(ctx context.Context, prefix string) error {
	store := New(l.Client, Config{TablePrefix: prefix})

	domains, err := store.Domains(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tables for cleanup: %w", err)
	}

	waiter := dynamodb.NewTableNotExistsWaiter(l.Client)
	for _, domain := range domains {
		if err := store.DeleteDomain(ctx, domain); err != nil {
			return err
		}
		table := store.TableName(domain)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}, 30*time.Second); err != nil {
			return fmt.Errorf("failed to wait for deletion of table %s: %w", table, err)
		}
	}
	return nil
}
