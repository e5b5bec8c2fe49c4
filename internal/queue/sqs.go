package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/davidbmar/youtube-commercial-detector/internal/types"
)

// Acknowledgment policies. Early matches the original behavior: the
// message is deleted as soon as it parses, so a crash mid-video loses the
// item. Late defers deletion until the result is persisted; a failed item
// becomes visible again once the visibility timeout lapses.
const (
	AckEarly = "early"
	AckLate  = "late"
)

// sqsAPI is the slice of the SQS client the queue uses; tests substitute a
// fake.
type sqsAPI interface {
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Client receives and acknowledges work items from an SQS queue.
type Client struct {
	api               sqsAPI
	queueURL          string
	waitSeconds       int32
	visibilitySeconds int32
	ackPolicy         string
	logger            *slog.Logger
}

func NewClient(api *sqs.Client, queueURL string, waitSeconds, visibilitySeconds int32, ackPolicy string, logger *slog.Logger) *Client {
	return newClient(api, queueURL, waitSeconds, visibilitySeconds, ackPolicy, logger)
}

func newClient(api sqsAPI, queueURL string, waitSeconds, visibilitySeconds int32, ackPolicy string, logger *slog.Logger) *Client {
	if ackPolicy != AckLate {
		ackPolicy = AckEarly
	}
	return &Client{
		api:               api,
		queueURL:          queueURL,
		waitSeconds:       waitSeconds,
		visibilitySeconds: visibilitySeconds,
		ackPolicy:         ackPolicy,
		logger:            logger,
	}
}

// messageBody is the expected JSON shape of a queue message.
type messageBody struct {
	YouTubeURL string `json:"youtube_url"`
	Phrase     string `json:"phrase"`
}

// Receive pulls at most one work item. It first probes the approximate
// queue depth and skips the blocking receive when the queue reads empty;
// the probe can race with concurrent producers, which only costs one poll
// cycle. A nil, nil return means no work this call.
//
// Under the early ack policy the message is deleted here and the returned
// item carries no AckToken. Malformed bodies are always deleted: retrying
// them would just poison the queue.
func (c *Client) Receive(ctx context.Context) (*types.WorkItem, error) {
	attrs, err := c.api.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(c.queueURL),
		AttributeNames: []sqstypes.QueueAttributeName{sqstypes.QueueAttributeNameApproximateNumberOfMessages},
	})
	if err != nil {
		return nil, fmt.Errorf("get queue attributes: %w", err)
	}

	depth := attrs.Attributes[string(sqstypes.QueueAttributeNameApproximateNumberOfMessages)]
	c.logger.Info("queue depth", "approximate_messages", depth)
	if depth == "0" {
		c.logger.Info("queue is empty")
		return nil, nil
	}

	resp, err := c.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     c.waitSeconds,
		VisibilityTimeout:   c.visibilitySeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("receive message: %w", err)
	}
	if len(resp.Messages) == 0 {
		c.logger.Info("no messages available in the queue")
		return nil, nil
	}

	msg := resp.Messages[0]
	receiptHandle := aws.ToString(msg.ReceiptHandle)
	messageID := aws.ToString(msg.MessageId)

	var body messageBody
	if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &body); err != nil {
		c.logger.Error("could not parse message body as JSON, discarding", "message_id", messageID, "error", err)
		c.deleteQuietly(ctx, receiptHandle, messageID)
		return nil, nil
	}
	if body.YouTubeURL == "" {
		c.logger.Error("message does not contain a YouTube URL, discarding", "message_id", messageID)
		c.deleteQuietly(ctx, receiptHandle, messageID)
		return nil, nil
	}

	item := &types.WorkItem{
		YouTubeURL: body.YouTubeURL,
		Phrase:     body.Phrase,
		AckToken:   receiptHandle,
	}

	if c.ackPolicy == AckEarly {
		if err := c.Acknowledge(ctx, receiptHandle); err != nil {
			return nil, err
		}
		item.AckToken = ""
	}

	c.logger.Info("received work item", "message_id", messageID, "url", body.YouTubeURL)
	return item, nil
}

// Acknowledge deletes a message from the queue.
func (c *Client) Acknowledge(ctx context.Context, ackToken string) error {
	_, err := c.api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: aws.String(ackToken),
	})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

func (c *Client) deleteQuietly(ctx context.Context, receiptHandle, messageID string) {
	if err := c.Acknowledge(ctx, receiptHandle); err != nil {
		c.logger.Error("failed to delete discarded message", "message_id", messageID, "error", err)
	}
}
