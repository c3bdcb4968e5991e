package platform

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spacesedan/ytinsights/internal/models"
)

// quoteIdent wraps a name in backticks so it cannot break out of the
// statement.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// quoteString renders a single quoted SQL literal.
func quoteString(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `'`, `''`)
	return "'" + value + "'"
}

func createProjectSQL(name string) string {
	return "CREATE PROJECT " + quoteIdent(name)
}

func createDatabaseSQL(spec DatabaseSpec) (string, error) {
	params := spec.Parameters
	if params == nil {
		params = map[string]string{}
	}
	// encoding/json sorts map keys, keeping the statement stable
	raw, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to encode database parameters: %w", err)
	}

	return fmt.Sprintf("CREATE DATABASE %s WITH ENGINE = %s, PARAMETERS = %s",
		quoteIdent(spec.Name), quoteString(spec.Engine), raw), nil
}

func createModelSQL(project string, desc models.ModelDescriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE MODEL %s.%s PREDICT %s USING engine = %s",
		quoteIdent(project), quoteIdent(desc.Name), quoteIdent(desc.PredictTarget), quoteString(desc.Engine))

	keys := make([]string, 0, len(desc.Configuration))
	for k := range desc.Configuration {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&b, ", %s = %s", k, quoteString(desc.Configuration[k]))
	}
	return b.String()
}

func commentQuerySQL(q CommentQuery) string {
	target := quoteIdent(q.target())
	return fmt.Sprintf(
		"SELECT input.comment AS comment, output.%s AS %s FROM %s.get_comments AS input "+
			"JOIN %s.%s AS output WHERE input.youtube_video_id = %s LIMIT %d",
		target, target,
		quoteIdent(q.Database),
		quoteIdent(q.Project), quoteIdent(q.Model),
		quoteString(q.VideoID), q.Limit)
}
