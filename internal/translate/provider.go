package translate

import (
	"context"
	"fmt"

	"go-api/internal/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	awstranslate "github.com/aws/aws-sdk-go/service/translate"
)

// Provider translates a single text into lang.
type Provider interface {
	Translate(ctx context.Context, text, lang string) (string, error)
}

// NewProvider picks the provider named by cfg.TranslationProvider.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.TranslationProvider {
	case "", "dummy":
		return Dummy{}, nil
	case "aws":
		sess, err := session.NewSessionWithOptions(session.Options{
			Config:            aws.Config{Region: aws.String(cfg.AWSRegion)},
			SharedConfigState: session.SharedConfigEnable,
		})
		if err != nil {
			return nil, fmt.Errorf("aws session: %w", err)
		}
		return NewAWS(awstranslate.New(sess)), nil
	default:
		return nil, fmt.Errorf("unknown translation provider %q", cfg.TranslationProvider)
	}
}

// Dummy prefixes the text with the language code.
type Dummy struct{}

func (Dummy) Translate(_ context.Context, text, lang string) (string, error) {
	return lang + ": " + text, nil
}

// maxAWSBytes is the Amazon Translate request size limit.
const maxAWSBytes = 10000

// TextTranslator is the part of the Amazon Translate client in use.
type TextTranslator interface {
	TextWithContext(ctx aws.Context, in *awstranslate.TextInput, opts ...request.Option) (*awstranslate.TextOutput, error)
}

// AWS translates with Amazon Translate, letting it detect the source.
type AWS struct {
	client TextTranslator
}

func NewAWS(client TextTranslator) *AWS {
	return &AWS{client: client}
}

func (a *AWS) Translate(ctx context.Context, text, lang string) (string, error) {
	if len(text) > maxAWSBytes {
		return "", fmt.Errorf("text is %d bytes, limit is %d", len(text), maxAWSBytes)
	}
	out, err := a.client.TextWithContext(ctx, &awstranslate.TextInput{
		SourceLanguageCode: aws.String("auto"),
		TargetLanguageCode: aws.String(lang),
		Text:               aws.String(text),
	})
	if err != nil {
		return "", fmt.Errorf("amazon translate to %s: %w", lang, err)
	}
	return aws.StringValue(out.TranslatedText), nil
}
