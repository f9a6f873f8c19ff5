package secrets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// DefaultSecretName is the Secrets Manager entry holding the relay credentials.
const DefaultSecretName = "buddy"

// SecretValueGetter is the subset of the Secrets Manager client used here.
type SecretValueGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSStore reads a JSON secret document from AWS Secrets Manager.
type AWSStore struct {
	client     SecretValueGetter
	secretName string
}

func NewAWSStore(ctx context.Context, secretName, region string) (*AWSStore, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return NewAWSStoreWithClient(secretsmanager.NewFromConfig(cfg), secretName), nil
}

func NewAWSStoreWithClient(client SecretValueGetter, secretName string) *AWSStore {
	if secretName == "" {
		secretName = DefaultSecretName
	}
	return &AWSStore{client: client, secretName: secretName}
}

func (s *AWSStore) Fetch(ctx context.Context) (Secrets, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.secretName),
	})
	if err != nil {
		return Secrets{}, fmt.Errorf("getting secret %s: %w", s.secretName, err)
	}
	if out.SecretString == nil {
		return Secrets{}, fmt.Errorf("secret %s has no secret string", s.secretName)
	}
	return decode(*out.SecretString)
}
