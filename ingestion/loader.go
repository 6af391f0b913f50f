// Copyright 2025 Poiesic Systems
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


package ingestion

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
)

// SourceKey is the document metadata key holding the source path.
const SourceKey = "source"

// SupportedExtensions lists the file types LoadDirectory reads.
var SupportedExtensions = []string{"txt", "md", "pdf", "html", "htm"}

const maxDirectoryDepth = 32

// LoadDirectory reads every supported file under root. Each document's
// "source" metadata is its path as reached from root, e.g.
// "policies/Policy Document 1.pdf". PDFs yield one document per page.
// Unreadable files are skipped.
func LoadDirectory(ctx context.Context, root string) ([]schema.Document, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read document directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	loader := documentloaders.NewRecursiveDirLoader(
		documentloaders.WithRoot(root),
		documentloaders.WithMaxDepth(maxDirectoryDepth),
		documentloaders.WithAllowExts(SupportedExtensions...),
	)
	docs, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	return docs, nil
}
