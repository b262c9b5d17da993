// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ocr

import (
	"github.com/otiai10/gosseract/v2"

	"pdf-ingest/pkg/errors"
)

// gosseractRecognizer 基于 Tesseract 的识别会话
type gosseractRecognizer struct {
	client *gosseract.Client
}

func newGosseractRecognizer(language string, pageSegMode int) (Recognizer, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "设置 OCR 语言 %q failed", language)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(pageSegMode)); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "设置分段模式 %d failed", pageSegMode)
	}
	return &gosseractRecognizer{client: client}, nil
}

func (r *gosseractRecognizer) Recognize(png []byte) (string, error) {
	if err := r.client.SetImageFromBytes(png); err != nil {
		return "", errors.Wrap(err, "加载页面图像failed")
	}
	return r.client.Text()
}

func (r *gosseractRecognizer) Close() error {
	return r.client.Close()
}
