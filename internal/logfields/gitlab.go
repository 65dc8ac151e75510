package logfields

import "go.uber.org/zap"

func Project(val string) zap.Field {
	return zap.String("gitlab.project", val)
}

func ProjectID(val int) zap.Field {
	return zap.Int("gitlab.project_id", val)
}

func MergeRequest(val int) zap.Field {
	return zap.Int("gitlab.merge_request", val)
}

func Pipeline(val int) zap.Field {
	return zap.Int("gitlab.pipeline", val)
}

func Branch(val string) zap.Field {
	return zap.String("git.branch", val)
}

func SourceBranch(val string) zap.Field {
	return zap.String("git.source_branch", val)
}

func TargetBranch(val string) zap.Field {
	return zap.String("git.target_branch", val)
}

func Commit(val string) zap.Field {
	return zap.String("git.commit", val)
}
