package channels

import (
	"fmt"
	"maps"
	"slices"

	"github.com/dsh2dsh/logchain/internal/config"
	"github.com/dsh2dsh/logchain/internal/processor"
)

func ProcessorFromConfig(in *config.ProcessorEnum) (processor.Processor,
	error,
) {
	switch v := in.Ret.(type) {
	case *config.UIDProcessor:
		p, err := processor.NewUID(v.Length)
		if err != nil {
			return nil, err
		}
		return p.Process, nil
	case *config.PsrPlaceholderProcessor:
		p := processor.NewPsrPlaceholder().WithRemoveUsed(v.RemoveUsed)
		if v.TimeLayout != "" {
			p.WithTimeLayout(v.TimeLayout)
		}
		return p.Process, nil
	case *config.MemoryProcessor:
		return processor.Memory(v.Humanized), nil
	case *config.HostnameProcessor:
		return processor.Hostname(), nil
	case *config.TagsProcessor:
		return processor.Tags(tagList(v.Tags)...), nil
	case *config.GitProcessor:
		return processor.NewGit(v.Level).WithDir(v.Dir).Process, nil
	}
	panic(fmt.Sprintf("unknown processor type %T", in.Ret))
}

// tagList renders tags as "key:value" ordered by key.
func tagList(tags map[string]string) []string {
	list := make([]string, 0, len(tags))
	for _, k := range slices.Sorted(maps.Keys(tags)) {
		list = append(list, k+":"+tags[k])
	}
	return list
}
