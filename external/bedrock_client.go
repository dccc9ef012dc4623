package external

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
)

// BedrockAPI is the subset of the bedrockruntime client used by SDKInvoker.
type BedrockAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// SDKOptions configures NewSDKInvoker.
type SDKOptions struct {
	Region   string
	Endpoint string // Optional BaseEndpoint override

	// Static credentials. When AccessKeyID is empty the default credential
	// chain (env, shared config, IAM role) is used.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	HTTPClient *http.Client
}

// SDKInvoker calls Bedrock through the AWS SDK.
type SDKInvoker struct {
	client BedrockAPI
}

// NewSDKInvoker loads AWS configuration and builds a bedrockruntime client.
// SDK retries are disabled: the gateway makes a single attempt per request.
func NewSDKInvoker(ctx context.Context, opts SDKOptions) (*SDKInvoker, error) {
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		awsconfig.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken),
		))
	}
	if opts.HTTPClient != nil {
		loadOpts = append(loadOpts, awsconfig.WithHTTPClient(opts.HTTPClient))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := bedrockruntime.NewFromConfig(cfg, func(o *bedrockruntime.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return NewSDKInvokerWithClient(client), nil
}

// NewSDKInvokerWithClient wraps an existing client (useful for testing).
func NewSDKInvokerWithClient(client BedrockAPI) *SDKInvoker {
	return &SDKInvoker{client: client}
}

// Invoke implements Invoker.
func (s *SDKInvoker) Invoke(ctx context.Context, in *InvokeInput) (*InvokeOutput, error) {
	out, err := s.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(in.ModelID),
		Body:        in.Body,
		ContentType: aws.String(in.ContentType),
		Accept:      aws.String(in.Accept),
	})
	if err != nil {
		return nil, classifySDKError(err)
	}

	requestID, _ := awsmiddleware.GetRequestIDMetadata(out.ResultMetadata)
	return &InvokeOutput{
		Body:       out.Body,
		StatusCode: http.StatusOK,
		RequestID:  requestID,
	}, nil
}

// classifySDKError extracts status, request id and the service message from
// an SDK operation error.
func classifySDKError(err error) *InvokeError {
	ie := &InvokeError{Message: err.Error(), Err: err}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		ie.StatusCode = respErr.HTTPStatusCode()
		ie.RequestID = respErr.ServiceRequestID()
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		ie.Code = apiErr.ErrorCode()
		if msg := apiErr.ErrorMessage(); msg != "" {
			ie.Message = msg
		}
	}

	return ie
}
