package shopify

import (
	"context"
	"fmt"
)

// Staged upload flow: request a signed target, let the browser upload to it,
// then complete with fileCreate. Video bytes never pass through this backend.

type StagedUploadParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type StagedUploadTarget struct {
	URL         string                  `json:"url"`
	ResourceURL string                  `json:"resourceUrl"`
	Parameters  []StagedUploadParameter `json:"parameters"`
}

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

const stagedUploadsCreateMutation = `
mutation stagedUploadsCreate($input: [StagedUploadInput!]!) {
  stagedUploadsCreate(input: $input) {
    stagedTargets {
      url
      resourceUrl
      parameters { name value }
    }
    userErrors { field message }
  }
}`

func (c Client) CreateStagedUpload(ctx context.Context, fileName, mimeType string, fileSize int64) (*StagedUploadTarget, error) {
	var out struct {
		StagedUploadsCreate struct {
			StagedTargets []StagedUploadTarget `json:"stagedTargets"`
			UserErrors    []userError          `json:"userErrors"`
		} `json:"stagedUploadsCreate"`
	}
	err := c.doGraphQL(ctx, stagedUploadsCreateMutation, map[string]any{
		"input": []map[string]any{{
			"resource":   "FILE",
			"filename":   fileName,
			"mimeType":   mimeType,
			"fileSize":   fmt.Sprintf("%d", fileSize),
			"httpMethod": "POST",
		}},
	}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.StagedUploadsCreate.UserErrors) > 0 {
		return nil, fmt.Errorf("staged upload rejected: %s", out.StagedUploadsCreate.UserErrors[0].Message)
	}
	if len(out.StagedUploadsCreate.StagedTargets) == 0 {
		return nil, fmt.Errorf("staged upload returned no target")
	}
	return &out.StagedUploadsCreate.StagedTargets[0], nil
}

type VideoSource struct {
	URL      string `json:"url"`
	Format   string `json:"format"`
	Height   int    `json:"height"`
	Width    int    `json:"width"`
	MimeType string `json:"mimeType"`
}

type VideoFile struct {
	ID               string  `json:"id"`
	CreatedAt        string  `json:"createdAt"`
	FileStatus       string  `json:"fileStatus"`
	Alt              string  `json:"alt"`
	Duration         float64 `json:"duration"`
	OriginalFilename string  `json:"originalFilename"`
	Preview          struct {
		Image struct {
			URL string `json:"url"`
		} `json:"image"`
	} `json:"preview"`
	Sources []VideoSource `json:"sources"`
}

// SourceURL returns the first playable source URL, if any.
func (v VideoFile) SourceURL() string {
	if len(v.Sources) > 0 {
		return v.Sources[0].URL
	}
	return ""
}

func (v VideoFile) PreviewImageURL() string {
	return v.Preview.Image.URL
}

const fileCreateMutation = `
mutation fileCreate($files: [FileCreateInput!]!) {
  fileCreate(files: $files) {
    files {
      id
      createdAt
      fileStatus
      alt
      preview { image { url } }
      ... on Video {
        duration
        originalFilename
        sources { url format height width mimeType }
      }
    }
    userErrors { field message }
  }
}`

func (c Client) CompleteFileUpload(ctx context.Context, resourceURL, fileName, altText string) (*VideoFile, error) {
	var out struct {
		FileCreate struct {
			Files      []VideoFile `json:"files"`
			UserErrors []userError `json:"userErrors"`
		} `json:"fileCreate"`
	}
	err := c.doGraphQL(ctx, fileCreateMutation, map[string]any{
		"files": []map[string]any{{
			"contentType":    "FILE",
			"originalSource": resourceURL,
			"alt":            altText,
			"filename":       fileName,
		}},
	}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.FileCreate.UserErrors) > 0 {
		return nil, fmt.Errorf("fileCreate rejected: %s", out.FileCreate.UserErrors[0].Message)
	}
	if len(out.FileCreate.Files) == 0 {
		return nil, fmt.Errorf("fileCreate returned no file")
	}
	f := out.FileCreate.Files[0]
	if f.OriginalFilename == "" {
		f.OriginalFilename = fileName
	}
	return &f, nil
}

type VideoFilePage struct {
	Files       []VideoFile
	HasNextPage bool
	EndCursor   string
}

const listVideoFilesQuery = `
query listVideoFiles($first: Int!, $after: String, $query: String) {
  files(first: $first, after: $after, query: $query) {
    edges {
      cursor
      node {
        id
        createdAt
        fileStatus
        alt
        preview { image { url } }
        ... on Video {
          duration
          originalFilename
          sources { url format height width mimeType }
        }
      }
    }
    pageInfo { hasNextPage endCursor }
  }
}`

func (c Client) ListVideoFiles(ctx context.Context, search, after string, first int) (*VideoFilePage, error) {
	if first <= 0 {
		first = 20
	}
	queryString := "media_type:video"
	if search != "" {
		queryString += " " + search
	}
	vars := map[string]any{
		"first": first,
		"query": queryString,
	}
	if after != "" {
		vars["after"] = after
	}

	var out struct {
		Files struct {
			Edges []struct {
				Cursor string    `json:"cursor"`
				Node   VideoFile `json:"node"`
			} `json:"edges"`
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
		} `json:"files"`
	}
	if err := c.doGraphQL(ctx, listVideoFilesQuery, vars, &out); err != nil {
		return nil, err
	}

	page := &VideoFilePage{
		HasNextPage: out.Files.PageInfo.HasNextPage,
		EndCursor:   out.Files.PageInfo.EndCursor,
	}
	for _, e := range out.Files.Edges {
		page.Files = append(page.Files, e.Node)
	}
	return page, nil
}
