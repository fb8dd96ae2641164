package aws

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/klothoplatform/platform/pkg/component"
	"github.com/klothoplatform/platform/pkg/construct"
)

const CronType = "aws:Cron"

type (
	CronArgs struct {
		// Schedule is `rate(<n> <unit>)`, `cron(<6 fields>)` or a 5-field crontab expression.
		Schedule string
		// Job creates a function to run. Exactly one of Job and Function is set.
		Job      *FunctionArgs
		Function *Function
		// Enabled defaults to true.
		Enabled *bool

		Transform struct {
			Rule   *component.Transform
			Target *component.Transform
		}
	}

	Cron struct {
		*component.Component
		Job    *Function
		rule   *construct.Resource
		target *construct.Resource
	}
)

var (
	ratePattern = regexp.MustCompile(`^rate\((\d+) (minute|minutes|hour|hours|day|days)\)$`)
	cronPattern = regexp.MustCompile(`^cron\((.*)\)$`)
)

// NormalizeSchedule validates a schedule and returns it in the form EventBridge accepts. Crontab expressions are
// translated to the 6-field EventBridge form.
func NormalizeSchedule(expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	if strings.HasPrefix(expr, "rate(") {
		m := ratePattern.FindStringSubmatch(expr)
		if m == nil {
			return "", fmt.Errorf("invalid rate expression %q (expected `rate(<value> <unit>)`)", expr)
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			return "", fmt.Errorf("invalid rate expression %q: value must be a positive integer", expr)
		}
		singular := !strings.HasSuffix(m[2], "s")
		if (n == 1) != singular {
			return "", fmt.Errorf("invalid rate expression %q: use a singular unit for 1 and plural otherwise", expr)
		}
		return expr, nil
	}
	if m := cronPattern.FindStringSubmatch(expr); m != nil {
		fields := strings.Fields(m[1])
		if len(fields) != 6 {
			return "", fmt.Errorf("invalid cron expression %q: expected 6 fields, found %d", expr, len(fields))
		}
		if fields[2] != "?" && fields[4] != "?" {
			return "", fmt.Errorf("invalid cron expression %q: one of day-of-month or day-of-week must be `?`", expr)
		}
		return expr, nil
	}
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return "", fmt.Errorf("invalid schedule %q (expected `rate(...)`, `cron(...)` or a 5-field crontab expression)", expr)
	}
	return CrontabToCron(fields)
}

// CrontabToCron converts `minute hour day-of-month month day-of-week` to
// `cron(minute hour day-of-month month day-of-week year)`. EventBridge numbers weekdays from 1 (Sunday) and
// requires `?` in one of the day fields.
func CrontabToCron(fields []string) (string, error) {
	if len(fields) != 5 {
		return "", fmt.Errorf("crontab expression must have 5 fields, found %d", len(fields))
	}
	minute, hour, dom, month, dow := fields[0], fields[1], fields[2], fields[3], fields[4]

	switch {
	case dow == "*" || dow == "?":
		dow = "?"
	case dom == "*" || dom == "?":
		dom = "?"
	default:
		return "", errors.New("crontab expressions restricting both day-of-month and day-of-week are not supported")
	}
	if dow != "?" {
		var err error
		if dow, err = shiftWeekdays(dow); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("cron(%s %s %s %s %s *)", minute, hour, dom, month, dow), nil
}

var weekdayToken = regexp.MustCompile(`\d+`)

func shiftWeekdays(dow string) (string, error) {
	var err error
	// step values (`*/2`, `1-5/2`) are not weekdays
	head, step, hasStep := strings.Cut(dow, "/")
	shifted := weekdayToken.ReplaceAllStringFunc(head, func(s string) string {
		n, convErr := strconv.Atoi(s)
		if convErr != nil || n > 7 {
			err = fmt.Errorf("invalid day of week %q", s)
			return s
		}
		if n == 7 {
			n = 0
		}
		return strconv.Itoa(n + 1)
	})
	if err != nil {
		return "", err
	}
	if hasStep {
		shifted += "/" + step
	}
	return shifted, nil
}

func NewCron(stack *component.Stack, name string, args CronArgs, opts ...component.Option) (*Cron, error) {
	schedule, err := NormalizeSchedule(args.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid cron %s: %w", name, err)
	}
	if (args.Job == nil) == (args.Function == nil) {
		return nil, fmt.Errorf("invalid cron %s: exactly one of job and function is required", name)
	}
	c, err := component.New(stack, CronType, name, opts...)
	if err != nil {
		return nil, err
	}
	cron := &Cron{Component: c, Job: args.Function}
	if args.Job != nil {
		if cron.Job, err = NewFunction(stack, name+"Handler", *args.Job, component.WithParent(c)); err != nil {
			return nil, err
		}
	}

	state := "ENABLED"
	if args.Enabled != nil && !*args.Enabled {
		state = "DISABLED"
	}
	cron.rule, err = c.AddResource("rule", resource("cloudwatch_event_rule", construct.Properties{
		"scheduleExpression": schedule,
		"state":              state,
	}, args.Transform.Rule))
	if err != nil {
		return nil, err
	}
	cron.target, err = c.AddResource("target", resource("cloudwatch_event_target", construct.Properties{
		"rule": c.Attr(cron.rule, "name"),
		"arn":  cron.Job.Arn(),
	}, args.Transform.Target))
	if err != nil {
		return nil, err
	}
	if _, err := c.AddResource("permission", resource("lambda_permission", construct.Properties{
		"action":    "lambda:InvokeFunction",
		"function":  cron.Job.Arn(),
		"principal": "events.amazonaws.com",
		"sourceArn": c.Attr(cron.rule, "arn"),
	}, nil)); err != nil {
		return nil, err
	}
	if err := c.RegisterOutputs(map[string]any{"rule": c.Attr(cron.rule, "name")}); err != nil {
		return nil, err
	}
	return cron, nil
}

func (c *Cron) RuleResource() *construct.Resource { return c.rule }
