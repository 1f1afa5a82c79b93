package awscloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/sirupsen/logrus"
)

// SNSNotifier implements notify.Notifier by publishing to an SNS topic.
type SNSNotifier struct {
	client   *sns.Client
	topicARN string
	log      logrus.FieldLogger
}

// NewSNSNotifier creates an SNS-backed notifier publishing to topicARN.
func NewSNSNotifier(log logrus.FieldLogger, cfg aws.Config, topicARN string) *SNSNotifier {
	return &SNSNotifier{
		client:   sns.NewFromConfig(cfg),
		topicARN: topicARN,
		log:      log.WithField("component", "sns_notifier"),
	}
}

// Notify publishes one message to the topic.
func (n *SNSNotifier) Notify(ctx context.Context, subject, body string) error {
	_, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(body),
	})
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", n.topicARN, err)
	}

	n.log.WithField("subject", subject).Debug("published notification")

	return nil
}
