package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
)

const noticeSender = "License Management System"

var noticeTemplate = template.Must(template.New("notice").Parse(
	`<p>Dear {{.Reseller}},</p>
<p>This is a notification that the software license for the following product is expiring soon:</p>
<p>Product: {{.Product}}<br>
Expiration Date: {{.ExpirationDate}}</p>
<p>Please contact your client to arrange for a renewal.</p>
<p>Thank you,<br>
{{.Sender}}</p>`))

// TemplateGenerator fills a fixed notice. Output depends only on the input.
type TemplateGenerator struct{}

func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

func (g *TemplateGenerator) Generate(_ context.Context, in NotificationInput) (Content, error) {
	var body bytes.Buffer
	err := noticeTemplate.Execute(&body, struct {
		NotificationInput
		Sender string
	}{in, noticeSender})
	if err != nil {
		return Content{}, fmt.Errorf("render notice: %w", err)
	}

	return Content{
		Subject: "License Expiration Notice for " + in.Product,
		Body:    body.String(),
	}, nil
}
