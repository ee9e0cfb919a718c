package lib

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"vbs/src/config"
	"vbs/src/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQSAPI is the subset of the SQS client the publisher uses.
type SQSAPI interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type SQSPublisher struct {
	client    SQSAPI
	queueName string

	mu       sync.Mutex
	queueUrl *string
}

func AWSGetSQSClient(ctx context.Context) (*sqs.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Printf("Error loading default config: %s\n", err.Error())
		return nil, err
	}
	return sqs.NewFromConfig(cfg), nil
}

func NewSQSPublisher(client SQSAPI, queueName string) *SQSPublisher {
	return &SQSPublisher{client: client, queueName: queueName}
}

func (s *SQSPublisher) url(ctx context.Context) (*string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queueUrl != nil {
		return s.queueUrl, nil
	}
	out, err := s.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(s.queueName),
	})
	if err != nil {
		return nil, fmt.Errorf("queue url for %s: %w", s.queueName, err)
	}
	s.queueUrl = out.QueueUrl
	return s.queueUrl, nil
}

func (s *SQSPublisher) Publish(ctx context.Context, key string, payload types.JSONB) error {
	qurl, err := s.url(ctx)
	if err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	out, err := s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    qurl,
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"key": {DataType: aws.String("String"), StringValue: aws.String(key)},
		},
	})
	if err != nil {
		return fmt.Errorf("send message to %s: %w", s.queueName, err)
	}
	log.Printf("Message sent to queue: %s\n", aws.ToString(out.MessageId))
	return nil
}

// NewPublisher picks SQS in production and Kafka elsewhere. It returns nil
// when neither is configured, and callers skip publishing in that case.
func NewPublisher(ctx context.Context, cfg *config.Config) Publisher {
	if cfg.IsProd() && cfg.EventsQueueName != "" {
		client, err := AWSGetSQSClient(ctx)
		if err != nil {
			log.Printf("Failed to initialize SQS client: %s\n", err.Error())
			return nil
		}
		return NewSQSPublisher(client, cfg.EventsQueueName)
	}
	if cfg.KafkaBroker != "" {
		return NewKafkaPublisher(cfg.KafkaBroker, "PaymentUpdatesProducer", cfg.EventsTopic)
	}
	log.Println("No event broker configured: payment events will not be published")
	return nil
}
