package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kspify/kspify/internal/core/descriptor"
	"github.com/kspify/kspify/internal/core/rules"
)

func parse(t *testing.T, path, src string) *descriptor.Descriptor {
	t.Helper()
	d, err := descriptor.Parse(path, []byte(src), descriptor.DefaultOptions())
	require.NoError(t, err)
	return d
}

func issuesBySeverity(res *Result, sev Severity) []Issue {
	var out []Issue
	for _, is := range res.Issues {
		if is.Severity == sev {
			out = append(out, is)
		}
	}
	return out
}

func TestClassify_PluginAndDependency_Migrate(t *testing.T) {
	src := `plugins {
    id 'kotlin-kapt'
}

dependencies {
    kapt 'g:a:1.0'
}
`
	res := Classify(parse(t, "build.gradle", src), rules.Default())

	require.Len(t, res.Actions, 2, "one plugin action, one dependency action")
	assert.Equal(t, Migrate, res.Actions[0].Kind)
	assert.NotNil(t, res.Actions[0].Plugin)
	assert.Equal(t, "com.google.devtools.ksp", res.Actions[0].TargetPluginID)

	assert.Equal(t, Migrate, res.Actions[1].Kind)
	require.NotNil(t, res.Actions[1].Dependency)
	assert.Equal(t, "ksp", res.Actions[1].TargetKeyword)
	assert.Empty(t, res.Actions[1].TargetCoordinate, "unmapped coordinates stay put")

	assert.False(t, res.HasConflict())
	assert.Empty(t, issuesBySeverity(res, SeverityManualReview))
	assert.Equal(t, 2, res.MigrateCount())
}

func TestClassify_MixedMechanisms_OneConflict(t *testing.T) {
	src := `dependencies {
    kapt 'androidx.room:room-compiler:2.5.0'
    ksp 'androidx.room:room-compiler:2.5.0'
}
`
	res := Classify(parse(t, "build.gradle", src), rules.Default())

	conflicts := issuesBySeverity(res, SeverityConflict)
	require.Len(t, conflicts, 1, "exactly one conflict for the pair")
	assert.Contains(t, conflicts[0].Message, "androidx.room:room-compiler")
	assert.Contains(t, conflicts[0].Message, "line 2")
	assert.Contains(t, conflicts[0].Message, "line 3")
	assert.True(t, res.HasConflict())

	require.Len(t, res.Actions, 1)
	assert.Equal(t, Conflict, res.Actions[0].Kind)
}

func TestClassify_ConflictAcrossCoordinateRewrite(t *testing.T) {
	// The kapt glide compiler migrates to the glide ksp artifact, so a ksp
	// declaration of that artifact is the same logical processor.
	src := `dependencies {
    kapt 'com.github.bumptech.glide:compiler:4.14.2'
    ksp 'com.github.bumptech.glide:ksp:4.14.2'
}
`
	res := Classify(parse(t, "build.gradle", src), rules.Default())
	require.Len(t, issuesBySeverity(res, SeverityConflict), 1)
	assert.True(t, res.HasConflict())
}

func TestClassify_CoordinateRules(t *testing.T) {
	tests := []struct {
		name       string
		src        string
		wantKind   ActionKind
		wantCoord  string
		wantIssues Severity
	}{
		{
			name:      "GlideRewritesArtifact",
			src:       "dependencies {\n    kapt 'com.github.bumptech.glide:compiler:4.14.2'\n}\n",
			wantKind:  Migrate,
			wantCoord: "com.github.bumptech.glide:ksp:4.14.2",
		},
		{
			name:       "RoomMigratesWithNote",
			src:        "dependencies {\n    kapt 'androidx.room:room-compiler:2.5.0'\n}\n",
			wantKind:   Migrate,
			wantIssues: SeverityInfo,
		},
		{
			name:       "DataBindingIsManual",
			src:        "dependencies {\n    kapt 'androidx.databinding:databinding-compiler:8.0.0'\n}\n",
			wantKind:   ManualReview,
			wantIssues: SeverityManualReview,
		},
		{
			name:       "UnmappedVariantKeywordIsManual",
			src:        "dependencies {\n    kaptDebug 'g:a:1.0'\n}\n",
			wantKind:   ManualReview,
			wantIssues: SeverityManualReview,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Classify(parse(t, "build.gradle", tt.src), rules.Default())
			require.Len(t, res.Actions, 1)
			assert.Equal(t, tt.wantKind, res.Actions[0].Kind)
			assert.Equal(t, tt.wantCoord, res.Actions[0].TargetCoordinate)
			if tt.wantIssues != "" {
				require.NotEmpty(t, res.Issues)
				assert.Equal(t, tt.wantIssues, res.Issues[0].Severity)
			}
		})
	}
}

func TestClassify_UnrelatedDeclarations_LeftAlone(t *testing.T) {
	src := `dependencies {
    implementation 'androidx.core:core-ktx:1.10.0'
    annotationProcessor 'org.projectlombok:lombok:1.18.26'
    testImplementation 'junit:junit:4.13.2'
}
`
	res := Classify(parse(t, "build.gradle", src), rules.Default())
	assert.Empty(t, res.Actions, "non-kapt keywords are not the tool's business")
	assert.Empty(t, res.Issues)
}

func TestClassify_PluginRemovedWhenTargetPresent(t *testing.T) {
	src := `plugins {
    id 'com.google.devtools.ksp' version '1.9.0-1.0.13'
    id 'kotlin-kapt'
}
`
	res := Classify(parse(t, "build.gradle", src), rules.Default())
	require.Len(t, res.Actions, 1)
	assert.Equal(t, Migrate, res.Actions[0].Kind)
	assert.True(t, res.Actions[0].RemoveDeclaration)

	infos := issuesBySeverity(res, SeverityInfo)
	require.Len(t, infos, 1)
	assert.Contains(t, infos[0].Message, "already applied")
}

func TestClassify_BothSourceSpellings_SecondRemoved(t *testing.T) {
	src := `plugins {
    id 'kotlin-kapt'
    id 'org.jetbrains.kotlin.kapt'
}
`
	res := Classify(parse(t, "build.gradle", src), rules.Default())

	require.Len(t, res.Actions, 2)
	assert.Equal(t, Migrate, res.Actions[0].Kind)
	assert.False(t, res.Actions[0].RemoveDeclaration)
	assert.Equal(t, "com.google.devtools.ksp", res.Actions[0].TargetPluginID)

	assert.Equal(t, Migrate, res.Actions[1].Kind)
	assert.True(t, res.Actions[1].RemoveDeclaration,
		"a second spelling of the same plugin must not become a duplicate declaration")

	infos := issuesBySeverity(res, SeverityInfo)
	var removals int
	for _, is := range infos {
		if strings.Contains(is.Message, "already applied") {
			removals++
		}
	}
	assert.Equal(t, 1, removals)
}

func TestClassify_Blocks(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantKind ActionKind
	}{
		{
			name:     "CleanKaptBlockMigrates",
			src:      "kapt {\n    arguments {\n        arg(\"k\", \"v\")\n    }\n}\n",
			wantKind: Migrate,
		},
		{
			name:     "ExtraContentNeedsReview",
			src:      "kapt {\n    correctErrorTypes = true\n}\n",
			wantKind: ManualReview,
		},
		{
			name:     "BothBlocksNeedMerging",
			src:      "kapt {\n    arguments {\n        arg(\"k\", \"v\")\n    }\n}\n\nksp {\n    arg(\"x\", \"y\")\n}\n",
			wantKind: ManualReview,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Classify(parse(t, "build.gradle", tt.src), rules.Default())
			require.Len(t, res.Actions, 1)
			assert.Equal(t, tt.wantKind, res.Actions[0].Kind)
			if tt.wantKind == Migrate {
				assert.Equal(t, "ksp", res.Actions[0].TargetBlockName)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	src := `plugins {
    id 'kotlin-kapt'
}
dependencies {
    kapt 'androidx.room:room-compiler:2.5.0'
    kaptTest 'g:a:1.0'
    implementation 'g:b:1.0'
}
kapt {
    arguments {
        arg("k", "v")
    }
}
`
	d := parse(t, "build.gradle", src)
	table := rules.Default()

	first := Classify(d, table)
	for i := 0; i < 10; i++ {
		again := Classify(d, table)
		require.Equal(t, len(first.Actions), len(again.Actions))
		for j := range first.Actions {
			assert.Equal(t, first.Actions[j].Kind, again.Actions[j].Kind)
			assert.Equal(t, first.Actions[j].Line, again.Actions[j].Line)
		}
		assert.Equal(t, first.Issues, again.Issues)
	}
}
