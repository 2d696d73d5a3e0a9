package dynamostore

import (
	"bytes"
	"encoding/base64"
	"encoding/gob"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// pageToken is the decoded form of a select continuation token. Table pins the token
// to the table that issued it.
type pageToken struct {
	Table    string
	ItemName string
}

// encodeToken converts a scan's last evaluated key into an opaque continuation token.
// An empty key yields an empty token.
func (s *Store) encodeToken(table string, lastKey map[string]types.AttributeValue) (string, error) {
	av, ok := lastKey[s.config.KeyAttribute]
	if !ok {
		return "", nil
	}

	token := pageToken{Table: table}
	if err := attributevalue.Unmarshal(av, &token.ItemName); err != nil {
		return "", fmt.Errorf("failed to unmarshal last key: %w", err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(token); err != nil {
		return "", fmt.Errorf("failed to encode last key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// startKey converts a continuation token into an exclusive start key for table. An
// empty token yields a nil key.
func (s *Store) startKey(table, cursor string) (map[string]types.AttributeValue, error) {
	if cursor == "" {
		return nil, nil
	}

	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("invalid next token: %w", err)
	}

	var token pageToken
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&token); err != nil {
		return nil, fmt.Errorf("invalid next token: %w", err)
	}
	if token.Table != table {
		return nil, fmt.Errorf("invalid next token: issued for table %s", token.Table)
	}

	return map[string]types.AttributeValue{
		s.config.KeyAttribute: &types.AttributeValueMemberS{Value: token.ItemName},
	}, nil
}
